package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vmsite/collector/internal/event"
	"github.com/vmsite/collector/internal/export"
	"github.com/vmsite/collector/internal/metrics"
	"github.com/vmsite/collector/internal/store"
)

// collect stores one event or a batch. Storage failures are logged per item
// and never change the response.
func (s *Server) collect(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Collect.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
			return
		}
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	tr := event.Transport{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	batch, err := event.Decode(body, tr, s.now())
	if err != nil {
		s.logger.Debug("rejected event payload", "error", err, "request_id", c.GetString(requestIDKey))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if batch.Skipped > 0 {
		s.logger.Debug("skipped non-object batch items", "count", batch.Skipped)
	}

	ids, err := s.store.AppendBatch(c.Request.Context(), batch.Events)
	var be *store.BatchError
	switch {
	case err == nil:
	case errors.As(err, &be):
		for i, itemErr := range be.Items {
			s.logger.Warn("event not stored", "item", i, "kind", batch.Events[i].Kind, "error", itemErr)
		}
	default:
		s.logger.Warn("batch not stored", "events", len(batch.Events), "error", err)
		ids = make([]int64, len(batch.Events))
	}
	for _, id := range ids {
		if id == 0 {
			s.metrics.EventIngested(metrics.ResultError)
		} else {
			s.metrics.EventIngested(metrics.ResultOK)
		}
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) summary(c *gin.Context) {
	sum, err := s.stats.Summary(c.Request.Context(), s.now())
	if err != nil {
		s.fail(c, "summary", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) dashboard(c *gin.Context) {
	d, err := s.stats.Dashboard(c.Request.Context(), s.now())
	if err != nil {
		s.fail(c, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// export renders into a buffer first so a failed query yields a clean 500
// instead of a truncated attachment.
func (s *Server) export(c *gin.Context) {
	v, err := export.ParseView(c.Param("view"))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	p := export.ParseParams(c.Query("days"), c.Query("limit"))

	var buf bytes.Buffer
	if err := s.exporter.Write(c.Request.Context(), &buf, v, p, s.now()); err != nil {
		s.fail(c, "export "+string(v), err)
		return
	}
	c.Header("Content-Disposition", v.ContentDisposition())
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) admin(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", adminHTML)
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	s.logger.Error(op+" failed", "error", err, "request_id", c.GetString(requestIDKey))
	c.AbortWithStatus(http.StatusInternalServerError)
}
