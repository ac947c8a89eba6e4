package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davicafu/inventorylab/internal/product/application"
	"github.com/davicafu/inventorylab/internal/product/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// AdminHandler expone las operaciones administrativas: inspección del log de
// eventos, reconstrucción de proyecciones, registros de idempotencia y DLT.
type AdminHandler struct {
	store       domain.EventStore
	es          *application.EventSourcingHandler
	idempotency *application.IdempotencyService

	// Inyectados desde main para no acoplar este contexto al de proyección.
	projStatusFn func() interface{}
	resetViewsFn func(context.Context) error

	log *zap.Logger
}

func NewAdminHandler(
	store domain.EventStore,
	es *application.EventSourcingHandler,
	idempotency *application.IdempotencyService,
	projStatusFn func() interface{},
	resetViewsFn func(context.Context) error,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		store:        store,
		es:           es,
		idempotency:  idempotency,
		projStatusFn: projStatusFn,
		resetViewsFn: resetViewsFn,
		log:          log,
	}
}

// ---------------- Handlers ----------------

// ListEvents endpoint GET /v1/events
// Query params: aggregate_id (filtro), limit, offset.
func (h *AdminHandler) ListEvents(c *gin.Context) {
	var (
		records []sharedEvents.Record
		err     error
	)

	if aggregateID := c.Query("aggregate_id"); aggregateID != "" {
		records, err = h.store.ScanByAggregate(c.Request.Context(), aggregateID)
	} else {
		records, err = h.store.ScanAll(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	total := len(records)

	offset := 0
	if v, convErr := strconv.Atoi(c.DefaultQuery("offset", "0")); convErr == nil && v > 0 {
		offset = v
	}
	limit := 100
	if v, convErr := strconv.Atoi(c.DefaultQuery("limit", "100")); convErr == nil && v > 0 {
		limit = v
	}

	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"offset": offset,
		"limit":  limit,
		"events": records[offset:end],
	})
}

// ListAggregates endpoint GET /v1/events/aggregates
func (h *AdminHandler) ListAggregates(c *gin.Context) {
	ids, err := h.store.AggregateIDs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"aggregate_ids": ids, "count": len(ids)})
}

// RebuildProjections endpoint POST /v1/projections/rebuild
//
// Republica el log completo al broker. El proyector es idempotente, así que
// reaplicar eventos ya vistos no corrompe las vistas; con ?reset=true las
// vistas se vacían antes para un rebuild desde cero.
func (h *AdminHandler) RebuildProjections(c *gin.Context) {
	if c.Query("reset") == "true" && h.resetViewsFn != nil {
		if err := h.resetViewsFn(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		h.log.Info("🔄 Read model vaciado antes del rebuild")
	}

	republished, err := h.es.RepublishEvents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message":     "projection rebuild started",
		"republished": republished,
	})
}

// ProjectionStatus endpoint GET /v1/projections/status
func (h *AdminHandler) ProjectionStatus(c *gin.Context) {
	if h.projStatusFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "projection status not available"})
		return
	}
	c.JSON(http.StatusOK, h.projStatusFn())
}

// GetIdempotencyRecord endpoint GET /v1/idempotency/:key
func (h *AdminHandler) GetIdempotencyRecord(c *gin.Context) {
	key := c.Param("key")
	rec, err := h.idempotency.Result(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "idempotency key not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListDeadLetters endpoint GET /v1/dlt
func (h *AdminHandler) ListDeadLetters(c *gin.Context) {
	dls, err := h.es.ListDeadLetters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if dls == nil {
		dls = []domain.DeadLetter{}
	}
	c.JSON(http.StatusOK, gin.H{"dead_letters": dls, "count": len(dls)})
}

// ReplayDeadLetters endpoint POST /v1/dlt/replay
func (h *AdminHandler) ReplayDeadLetters(c *gin.Context) {
	replayed, err := h.es.ReplayDeadLetters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "dead letter replay completed", "replayed": replayed})
}
