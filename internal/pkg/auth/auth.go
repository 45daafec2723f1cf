/*
 * @Description: 访问令牌校验。令牌由外部认证服务签发，这里只负责验证
 * @Author: photox
 * @Date: 2025-10-09 10:21:14
 * @LastEditTime: 2025-10-20 18:03:55
 * @LastEditors: photox
 */
package auth

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ClaimsKey 是 gin.Context 中存放令牌声明的键
const ClaimsKey = "claims"

// CustomClaims 外部认证服务签发的访问令牌声明
type CustomClaims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

// TokenVerifier 使用 HS256 共享密钥校验访问令牌
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) (*TokenVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT 密钥不能为空")
	}
	return &TokenVerifier{secret: []byte(secret)}, nil
}

// ParseAccessToken 校验签名、算法和有效期，返回令牌声明
func (v *TokenVerifier) ParseAccessToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("解析令牌失败: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("令牌声明无效")
	}
	if claims.UserID == 0 {
		return nil, errors.New("令牌缺少用户ID")
	}
	return claims, nil
}

// FromContext 取出当前请求的令牌声明，未登录时返回 false
func FromContext(c *gin.Context) (*CustomClaims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*CustomClaims)
	return claims, ok
}

// UserID 当前登录用户的 ID，匿名请求返回 0
func UserID(c *gin.Context) uint {
	if claims, ok := FromContext(c); ok {
		return claims.UserID
	}
	return 0
}
