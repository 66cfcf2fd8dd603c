package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mofo-asi/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, dateH *DateHandler, tokens *service.TokenService) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/status", dateH.Status)

	api := r.Group("/", JWTAuthMiddleware(tokens))

	dates := api.Group("/dates")
	dates.POST("", dateH.StartDate)
	dates.GET("/:id", dateH.GetDate)
	dates.GET("/:id/result", dateH.GetDateResult)
	dates.POST("/:id/complete", dateH.CompleteDate)

	api.POST("/personality/fuse", dateH.FusePersonality)
	api.POST("/matches", dateH.RequestMatches)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
