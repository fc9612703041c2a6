package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projector-tracker/internal/metrics"
)

// HealthCheck verifica las dependencias del servicio (base de datos, redis).
type HealthCheck func(ctx context.Context) error

// NewRouter configura el router de Gin con middlewares y rutas bajo /api.
func NewRouter(
	logger *zap.Logger,
	m *metrics.Metrics,
	health HealthCheck,
	auth Authenticator,
	authH *AuthHandler,
	userH *UserHandler,
	equipmentH *EquipmentHandler,
	bookingH *BookingHandler,
	activityH *ActivityHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, métricas, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), metricsMiddleware(m), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api")
	api.GET("/health", healthHandler(health))

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", authH.Register)
	authRoutes.POST("/login", authH.Login)
	authRoutes.POST("/request-otp", authH.RequestOTP)
	authRoutes.POST("/verify-otp", authH.VerifyOTP)
	authRoutes.POST("/resend-verification", authH.ResendVerification)
	authRoutes.GET("/verify-email", authH.VerifyEmail)

	private := api.Group("", SessionAuthMiddleware(logger, auth))
	private.GET("/auth/me", authH.Me)
	private.POST("/auth/logout", authH.Logout)

	private.GET("/users", RequireAdmin(), userH.List)
	private.GET("/users/me", authH.Me)
	private.PUT("/users/me", userH.UpdateMe)

	projectors := private.Group("/projectors")
	projectors.GET("", equipmentH.List)
	projectors.GET("/:id", equipmentH.Get)
	projectors.POST("", RequireAdmin(), equipmentH.Create)
	projectors.PUT("/:id", RequireAdmin(), equipmentH.Update)
	projectors.DELETE("/:id", RequireAdmin(), equipmentH.Delete)
	projectors.POST("/:id/checkout", equipmentH.CheckOut)
	projectors.POST("/:id/checkin", equipmentH.CheckIn)

	bookings := private.Group("/bookings")
	bookings.GET("", bookingH.List)
	bookings.POST("", bookingH.Create)
	bookings.GET("/:id", bookingH.Get)
	bookings.PUT("/:id/cancel", bookingH.Cancel)

	activities := private.Group("/activities")
	activities.GET("/recent", activityH.Recent)
	activities.GET("/stats", RequireAdmin(), activityH.Stats)
	activities.GET("/projector/:id", activityH.ForProjector)
	activities.GET("/user/:id", activityH.ForUser)

	return r
}

func healthHandler(check HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				respondFail(c, http.StatusServiceUnavailable, "unhealthy: "+err.Error())
				return
			}
		}
		respond(c, http.StatusOK, "ok", gin.H{"status": "ok", "time": time.Now().UTC()})
	}
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

// metricsMiddleware etiqueta por plantilla de ruta para acotar la cardinalidad.
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
