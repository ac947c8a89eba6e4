package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/inventorylab/internal/projection/application"
	"github.com/davicafu/inventorylab/internal/projection/domain"
)

// QueryHandler expone el read model por HTTP. Las respuestas llevan la
// cabecera X-Projection-Lag para que los clientes puedan razonar sobre la
// consistencia eventual de la proyección.
type QueryHandler struct {
	queries   *application.ProductQueryService
	projector *application.Projector
}

func NewQueryHandler(queries *application.ProductQueryService, projector *application.Projector) *QueryHandler {
	return &QueryHandler{queries: queries, projector: projector}
}

// ---------------- Handlers ----------------

// GetProduct endpoint GET /v1/products/:id
func (h *QueryHandler) GetProduct(c *gin.Context) {
	id := c.Param("id")

	h.setLagHeader(c)

	view, err := h.queries.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrViewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found in projection (may not exist or not yet projected)"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

// ListProducts endpoint GET /v1/products
func (h *QueryHandler) ListProducts(c *gin.Context) {
	h.setLagHeader(c)

	views, err := h.queries.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": views, "count": len(views)})
}

// setLagHeader expone cuánto hace que la proyección aplicó su último evento.
func (h *QueryHandler) setLagHeader(c *gin.Context) {
	if h.projector == nil {
		return
	}
	status := h.projector.Status()
	if status.LastEventAt.IsZero() {
		c.Header("X-Projection-Lag", "unknown")
		return
	}
	c.Header("X-Projection-Lag", time.Since(status.LastEventAt).Truncate(time.Millisecond).String())
}
