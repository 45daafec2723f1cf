// internal/app/middleware/auth.go
package middleware

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/internal/pkg/auth"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/response"
)

type Middleware struct {
	verifier *auth.TokenVerifier
	users    repository.UserRepository

	// 已同步过用户名的用户，避免每个请求都写库
	known sync.Map // uint -> string
}

func NewMiddleware(verifier *auth.TokenVerifier, users repository.UserRepository) *Middleware {
	return &Middleware{verifier: verifier, users: users}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.Request.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return "", false
	}
	return parts[1], true
}

// ensureUser 按令牌中的信息补齐本地用户镜像，失败只记录日志
func (m *Middleware) ensureUser(c *gin.Context, claims *auth.CustomClaims) {
	if name, ok := m.known.Load(claims.UserID); ok && name == claims.Username {
		return
	}
	if err := m.users.Ensure(c.Request.Context(), claims.UserID, claims.Username); err != nil {
		log.Printf("[认证] ⚠️ 同步用户 %d 失败: %v", claims.UserID, err)
		return
	}
	m.known.Store(claims.UserID, claims.Username)
}

// JWTAuth 是一个强制性的JWT认证中间件
func (m *Middleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Header.Get("Authorization") == "" {
			response.Fail(c, http.StatusUnauthorized, "请求未携带Token，无权限访问")
			c.Abort()
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			response.Fail(c, http.StatusUnauthorized, "Token格式不正确")
			c.Abort()
			return
		}

		claims, err := m.verifier.ParseAccessToken(tokenString)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "无效或过期的Token")
			c.Abort()
			return
		}

		m.ensureUser(c, claims)
		c.Set(auth.ClaimsKey, claims)
		c.Next()
	}
}

// JWTAuthOptional 是一个可选的JWT认证中间件，Token 缺失或无效时按匿名用户处理
func (m *Middleware) JWTAuthOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := m.verifier.ParseAccessToken(tokenString)
		if err != nil {
			c.Next()
			return
		}

		m.ensureUser(c, claims)
		c.Set(auth.ClaimsKey, claims)
		c.Next()
	}
}

// AdminAuth 是一个管理员权限验证中间件，必须放在 JWTAuth 之后
func (m *Middleware) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.FromContext(c)
		if !ok {
			response.Fail(c, http.StatusForbidden, "权限信息获取失败")
			c.Abort()
			return
		}

		if !claims.Admin {
			response.Fail(c, http.StatusForbidden, "权限不足：此操作需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}
