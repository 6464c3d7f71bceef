package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServerConfig is the listener configuration.
type ServerConfig struct {
	Host       string
	Port       int
	CORSOrigin string
}

// Server wraps the gin engine and the underlying http.Server for graceful
// shutdown.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(cfg ServerConfig, handler *ChatHandler, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(cors(cfg.CORSOrigin))

	engine.POST("/chat", handler.Chat)
	engine.POST("/chat/stream", handler.ChatStream)
	engine.DELETE("/chat/:sessionId", handler.DeleteSession)
	engine.GET("/health", handler.Health)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
		// No WriteTimeout: the streaming endpoint holds the response open for
		// up to the request timeout plus heartbeats.
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		engine: engine,
		srv:    srv,
		logger: logger.With(zap.String("component", "http")),
	}
}

// Run blocks serving requests until the listener closes.
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func cors(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
