// Package handlertest 为处理器测试提供 SQLite 数据库、内存存储和请求工具
package handlertest

import (
	"bytes"
	"database/sql"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/photox-team/photox-app/internal/infra/persistence/dbtest"
	"github.com/photox-team/photox-app/internal/infra/persistence/ent"
	"github.com/photox-team/photox-app/internal/infra/storage/storagetest"
	"github.com/photox-team/photox-app/internal/pkg/auth"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/service/utility"
)

// 测试请求通过这两个请求头模拟登录用户
const (
	HeaderUser  = "X-Test-User"
	HeaderAdmin = "X-Test-Admin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Env 一个测试用例独占的依赖集合
type Env struct {
	DB        *sql.DB
	Repos     repository.Repositories
	TxManager repository.TransactionManager
	Store     *storagetest.Memory
	Cache     utility.CacheService
}

func NewEnv(t *testing.T, tags map[uint]string) *Env {
	t.Helper()
	db := dbtest.Open(t)
	if len(tags) > 0 {
		dbtest.SeedTags(t, db, tags)
	}
	return &Env{
		DB:        db,
		Repos:     ent.NewRepositories(db, dbtest.DBType),
		TxManager: ent.NewTransactionManager(db, dbtest.DBType),
		Store:     storagetest.NewMemory(),
		Cache:     utility.NewCacheService(nil),
	}
}

// FakeAuth 根据测试请求头写入令牌声明，替代真实的 JWT 校验
func FakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader(HeaderUser); raw != "" {
			uid, _ := strconv.ParseUint(raw, 10, 64)
			c.Set(auth.ClaimsKey, &auth.CustomClaims{
				UserID:   uint(uid),
				Username: "user" + raw,
				Admin:    c.GetHeader(HeaderAdmin) == "true",
			})
		}
		c.Next()
	}
}

// RequireUser 模拟 JWTAuth 的拒绝行为
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.UserID(c) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "未登录"})
			return
		}
		c.Next()
	}
}

func NewEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(FakeAuth())
	return engine
}

// Request 构造请求，body 为 io.Reader 时原样发送，否则编码为 JSON
type Request struct {
	Method      string
	Path        string
	User        uint
	Admin       bool
	Body        any
	ContentType string
}

func Do(t *testing.T, engine *gin.Engine, r Request) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	contentType := r.ContentType
	switch b := r.Body.(type) {
	case nil:
	case io.Reader:
		body = b
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(data)
		if contentType == "" {
			contentType = "application/json"
		}
	}

	req := httptest.NewRequest(r.Method, r.Path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.User != 0 {
		req.Header.Set(HeaderUser, strconv.FormatUint(uint64(r.User), 10))
	}
	if r.Admin {
		req.Header.Set(HeaderAdmin, "true")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// Envelope 统一响应结构，Data 按测试需要解码
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func Decode[T any](t *testing.T, w *httptest.ResponseRecorder) Envelope[T] {
	t.Helper()
	var env Envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// File multipart 表单中的一个文件
type File struct {
	Field   string
	Name    string
	Content []byte
}

// Multipart 构造 multipart/form-data 请求体，返回请求体和 Content-Type
func Multipart(t *testing.T, fields map[string]string, files ...File) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.Field, f.Name)
		require.NoError(t, err)
		_, err = fw.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
