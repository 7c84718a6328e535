package handler

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	ready atomic.Bool
	deps  *HealthDeps
}

// HealthDeps 健康检查依赖
type HealthDeps struct {
	Chain interface {
		HealthCheck(ctx context.Context) error
	}
	CheckTimeout time.Duration
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(deps *HealthDeps) *HealthHandler {
	h := &HealthHandler{deps: deps}
	h.ready.Store(false)
	return h
}

// SetReady 设置就绪状态
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Live 存活探针
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready 就绪探针
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "snapshots not loaded",
		})
		return
	}

	checks := make(map[string]string)
	if h.deps != nil && h.deps.Chain != nil {
		timeout := h.deps.CheckTimeout
		if timeout <= 0 {
			timeout = 3 * time.Second
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		if err := h.deps.Chain.HealthCheck(ctx); err != nil {
			checks["rpc"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"checks": checks,
			})
			return
		}
		checks["rpc"] = "ok"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": checks,
	})
}
