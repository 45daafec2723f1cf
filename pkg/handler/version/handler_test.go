package version

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photox-team/photox-app/internal/infra/persistence/dbtest"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/handler/handlertest"
)

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("connection refused") }

func TestGetVersion(t *testing.T) {
	started := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	h := NewHandler(ServerInfo{StorageType: "qiniu", VisionModel: "qwen-vl-max-latest", StartedAt: started}, downDB{})
	h.now = func() time.Time { return started.Add(90 * time.Second) }

	engine := handlertest.NewEngine()
	engine.GET("/api/public/version", h.GetVersion)

	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/api/public/version"})
	require.Equal(t, http.StatusOK, w.Code)
	got := handlertest.Decode[model.ServerInfoResponse](t, w).Data
	assert.NotEmpty(t, got.Version)
	assert.NotEmpty(t, got.GoVersion)
	assert.Equal(t, "qiniu", got.StorageType)
	assert.Equal(t, "qwen-vl-max-latest", got.VisionModel)
	assert.Equal(t, int64(90), got.UptimeSeconds)
	assert.True(t, started.Equal(got.StartedAt))
}

func TestHealth(t *testing.T) {
	engine := handlertest.NewEngine()
	engine.GET("/up", NewHandler(ServerInfo{}, dbtest.Open(t)).Health)
	engine.GET("/down", NewHandler(ServerInfo{}, downDB{}).Health)

	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/up"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "up", handlertest.Decode[model.HealthResponse](t, w).Data.Database)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/down"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "down", handlertest.Decode[model.HealthResponse](t, w).Data.Database)
}
