// Package httpapi exposes the attendance HTTP surface.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"schoolgate/internal/attendance"
	"schoolgate/internal/auth"
	"schoolgate/internal/cloudinary"
	"schoolgate/internal/httpmiddleware"
	"schoolgate/internal/qr"
	"schoolgate/internal/queue"
	"schoolgate/internal/store"
)

// Config carries the server's knobs.
type Config struct {
	JWTSigningKey   string
	JWTIssuer       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	QRImageSize     int
	RateLimitPerMin int
}

// Server binds the attendance service to gin routes.
type Server struct {
	cfg   Config
	svc   *attendance.Service
	dir   attendance.ChildDirectory
	codec *qr.Codec
	cdn   *cloudinary.Client
	q     queue.Queue
	db    *store.DB
	redis *store.Redis
}

// New wires a server. cdn, db and redis may be nil; the routes that need
// them degrade (503 for uploads, partial health).
func New(cfg Config, svc *attendance.Service, dir attendance.ChildDirectory, codec *qr.Codec,
	cdn *cloudinary.Client, q queue.Queue, db *store.DB, redisClient *store.Redis) *Server {
	return &Server{cfg: cfg, svc: svc, dir: dir, codec: codec, cdn: cdn, q: q, db: db, redis: redisClient}
}

// Router builds the gin engine with middleware and routes attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	if s.cfg.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewSimpleTokenBucket(s.cfg.RateLimitPerMin, s.cfg.RateLimitPerMin).GinMiddleware())
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.health)
	r.POST("/auth/register", s.register)

	authed := r.Group("/", auth.StaffAuth(s.cfg.JWTSigningKey, s.cfg.JWTIssuer))
	authed.POST("/attendance", s.checkIn)
	authed.POST("/attendance/checkout", s.checkOut)
	authed.GET("/attendance", s.listAttendance)
	authed.GET("/attendance/analytics", s.analytics)
	authed.GET("/children/:id/qr", s.childQR)
	authed.POST("/upload", s.upload)

	return r
}

func (s *Server) health(c *gin.Context) {
	redisHealthy := s.redis != nil && s.redis.Healthy(c.Request.Context())
	dbHealthy := s.db != nil && s.db.Client.PingContext(c.Request.Context()) == nil
	status := http.StatusOK
	if !redisHealthy || !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
}

// register issues tokens for a staff device. Staff identity itself is owned
// by the user system; this only binds a device to an asserted staff id.
func (s *Server) register(c *gin.Context) {
	var req struct {
		DeviceID  string `json:"deviceId" binding:"required"`
		StaffID   string `json:"staffId" binding:"required"`
		StaffName string `json:"staffName"`
		Role      string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = "staff"
	}

	tokens, err := auth.Issue(req.StaffID, req.StaffName, req.Role, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if s.db != nil {
		_ = s.db.SaveRefreshToken(context.WithoutCancel(c.Request.Context()), req.DeviceID, tokens.RefreshToken, tokens.RefreshExp)
	}

	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
