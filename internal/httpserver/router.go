package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	mqcontracts "github.com/552020/futura-prealpha/contracts/mq"
	"github.com/552020/futura-prealpha/internal/hook"
	"github.com/552020/futura-prealpha/pkg/logger"
	"github.com/552020/futura-prealpha/pkg/metrics"
	"github.com/552020/futura-prealpha/pkg/otel"
	"github.com/552020/futura-prealpha/pkg/trace"
)

// Pinger is implemented by backing stores checked on /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Broker is implemented by message-queue connections checked on /readyz.
type Broker interface {
	IsConnected() bool
}

type Router struct {
	Engine     *gin.Engine
	dispatcher *hook.Dispatcher
	logger     *zap.Logger
}

// NewRouter wires health, metrics and the hook endpoint. store and broker may be nil.
func NewRouter(logger *zap.Logger, dispatcher *hook.Dispatcher, store Pinger, broker Broker) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), otel.GinMiddleware(), requestMetrics())

	rt := &Router{Engine: r, dispatcher: dispatcher, logger: logger}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		if store != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
			defer cancel()

			if err := store.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store_not_ready", "error": err.Error()})
				return
			}
		}
		if broker != nil && !broker.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/hooks/:event", rt.handleHook)

	return rt
}

func (rt *Router) handleHook(c *gin.Context) {
	kind, ok := hook.ParseKind(c.Param("event"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown event " + c.Param("event")})
		return
	}

	var m mqcontracts.MutationEvent
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mutation event: " + err.Error()})
		return
	}
	m.Kind = string(kind)

	ctx := c.Request.Context()
	if id := c.GetHeader(trace.HeaderName()); id != "" {
		ctx = trace.WithContext(ctx, id)
	}
	ctx = trace.Ensure(ctx)
	c.Header(trace.HeaderName(), trace.FromContext(ctx))

	if err := rt.dispatcher.HandleMutation(ctx, m); err != nil {
		logger.WithTrace(ctx, rt.logger).Warn("Hook returned failure to caller",
			zap.String("event", string(kind)),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
