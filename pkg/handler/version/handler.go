/*
 * @Description: 服务信息与健康检查
 * @Author: photox
 * @Date: 2025-10-08 10:12:32
 * @LastEditTime: 2025-10-22 11:20:05
 * @LastEditors: photox
 */
package version

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/internal/pkg/version"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/response"
)

const pingTimeout = 2 * time.Second

// Pinger 由 *sql.DB 实现
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ServerInfo 启动时确定的运行配置
type ServerInfo struct {
	StorageType string
	VisionModel string
	StartedAt   time.Time
}

type Handler struct {
	info ServerInfo
	db   Pinger
	now  func() time.Time
}

func NewHandler(info ServerInfo, db Pinger) *Handler {
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	return &Handler{info: info, db: db, now: time.Now}
}

// GetVersion
// @Summary      获取服务信息
// @Description  返回构建版本、当前使用的对象存储和视觉模型以及运行时长
// @Tags         辅助工具
// @Produce      json
// @Success      200  {object}  response.Response{data=model.ServerInfoResponse}  "服务信息"
// @Router       /public/version [get]
func (h *Handler) GetVersion(c *gin.Context) {
	build := version.GetBuildInfo()
	response.Success(c, &model.ServerInfoResponse{
		Version:       build.Version,
		Commit:        build.Commit,
		BuildTime:     build.BuildTime,
		GoVersion:     build.GoVersion,
		Platform:      build.Platform,
		StorageType:   h.info.StorageType,
		VisionModel:   h.info.VisionModel,
		StartedAt:     h.info.StartedAt,
		UptimeSeconds: int64(h.now().Sub(h.info.StartedAt) / time.Second),
	}, "获取服务信息成功")
}

// Health
// @Summary      健康检查
// @Tags         辅助工具
// @Produce      json
// @Success      200  {object}  response.Response{data=model.HealthResponse}  "服务正常"
// @Failure      503  {object}  response.Response{data=model.HealthResponse}  "数据库不可用"
// @Router       /public/health [get]
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		log.Printf("[健康检查] 数据库不可用: %v", err)
		response.SuccessWithStatus(c, http.StatusServiceUnavailable, &model.HealthResponse{Database: "down"}, "数据库不可用")
		return
	}
	response.Success(c, &model.HealthResponse{Database: "up"}, "服务正常")
}
