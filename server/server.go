// Package server exposes the verification query surface over HTTP.
//
// The response shape of GET /api/verify/:cert_id is a compatibility
// boundary consumed by external web layers and must not change without
// versioning.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lvillar/certkit"
	"github.com/lvillar/certkit/verify"
)

// certificateJSON is the wire form of a found certificate.
type certificateJSON struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Course    string `json:"course"`
	IssueDate string `json:"issue_date"`
	IssuedAt  string `json:"issued_at"`
}

type verifyResponse struct {
	Found       bool             `json:"found"`
	Valid       bool             `json:"valid"`
	Certificate *certificateJSON `json:"certificate"`
}

// Server serves the verification API.
type Server struct {
	resolver *verify.Resolver
	log      *zap.Logger
	engine   *gin.Engine
}

// New builds the HTTP surface over a resolver.
func New(resolver *verify.Resolver, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{resolver: resolver, log: log, engine: engine}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.Use(s.requestLogger())
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/api/verify/:cert_id", s.handleVerify)
}

// Handler exposes the router for serving and for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	s.log.Info("verification API listening", zap.String("addr", addr))
	return s.engine.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleVerify(c *gin.Context) {
	certID := c.Param("cert_id")

	res, err := s.resolver.Resolve(c.Request.Context(), certID)
	if err != nil {
		// A failing store is not the same as an absent certificate.
		s.log.Error("certificate lookup failed", zap.String("cert_id", certID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"found":   false,
			"cert_id": certID,
			"message": "Verification temporarily unavailable",
		})
		return
	}

	if !res.Found {
		c.JSON(http.StatusNotFound, gin.H{
			"found":   false,
			"cert_id": certID,
			"message": "Certificate not found",
		})
		return
	}

	c.JSON(http.StatusOK, verifyResponse{
		Found:       true,
		Valid:       res.Valid,
		Certificate: toJSON(res.Certificate),
	})
}

func toJSON(rec *certkit.CertificateRecord) *certificateJSON {
	if rec == nil {
		return nil
	}
	return &certificateJSON{
		ID:        rec.CertID,
		Recipient: rec.RecipientName,
		Course:    rec.CourseName,
		IssueDate: rec.IssueDate,
		IssuedAt:  rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
