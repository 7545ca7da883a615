package adminhttp

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/ingestbuffer"
	"github.com/n1shan1/pms-trade-capture/internal/persistence"
	"github.com/n1shan1/pms-trade-capture/internal/tradeevent"
)

// Enqueuer is the narrow view of ingestbuffer.Buffer the admin server needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg ingestbuffer.PendingMessage)
}

// AuditLookup is the narrow view of persistence.Core the admin server needs
// for the audit-trail lookup endpoint.
type AuditLookup interface {
	FetchAudit(ctx context.Context, tradeID string) (*persistence.AuditRecord, error)
}

// Server exposes the admin replay and audit-lookup endpoints. Following the
// teacher's internal/http package shape: a single gin.Engine wired with
// logging and recovery middleware, handlers as methods.
type Server struct {
	R *gin.Engine

	buffer     Enqueuer
	classifier *tradeevent.Classifier
	audit      AuditLookup
	logger     *zap.Logger
}

func NewServer(buffer Enqueuer, classifier *tradeevent.Classifier, audit AuditLookup, logger *zap.Logger) *Server {
	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(func(c *gin.Context) {
		c.Next()
		logger.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	})

	s := &Server{R: g, buffer: buffer, classifier: classifier, audit: audit, logger: logger}

	g.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	g.GET("/metrics", gin.WrapH(promhttp.Handler()))
	g.POST("/admin/replay/hex", s.replayHex)
	g.GET("/admin/audit/:tradeId", s.fetchAudit)

	return s
}

// fetchAudit reads back the audit row for a trade ID, valid or quarantined.
func (s *Server) fetchAudit(c *gin.Context) {
	rec, err := s.audit.FetchAudit(c.Request.Context(), c.Param("tradeId"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
			return
		}
		s.logger.Error("fetch_audit", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit lookup failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// replayHex decodes a hex-encoded body and injects a PendingMessage into the
// buffer carrying the nil ack-handle ingestbuffer.ReplayOffsetHandle.
// PendingMessage has no offset field; the nil handle is the replay marker,
// and offset commit is a no-op for it (per spec.md §6).
func (s *Server) replayHex(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid Hex")
		return
	}

	raw, err := hex.DecodeString(string(body))
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid Hex")
		return
	}

	decoded := s.classifier.Classify(raw)
	msg := ingestbuffer.NewPendingMessage(raw, decoded, ingestbuffer.ReplayOffsetHandle)
	s.buffer.Enqueue(c.Request.Context(), msg)

	c.String(http.StatusOK, "Replay injected into buffer.")
}
