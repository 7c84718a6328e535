package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lawpunks/punk-watcher/pkg/logger"
)

// NewRouter 注册路由
func NewRouter(health *HealthHandler, snapshots *SnapshotHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog())

	r.GET("/health/live", health.Live)
	r.GET("/health/ready", health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/staking", snapshots.GetStaking)
		v1.GET("/metaverse/:tokenId", snapshots.GetMetaverse)
		v1.GET("/market", snapshots.GetMarket)
		v1.GET("/status", snapshots.GetStatus)
	}
	return r
}

// accessLog 请求日志，探针与 metrics 只记 debug
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch c.FullPath() {
		case "/health/live", "/health/ready", "/metrics":
			logger.Debug("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	}
}
