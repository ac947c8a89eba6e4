package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/inventorylab/internal/product/application"
	"github.com/davicafu/inventorylab/internal/product/domain"
)

// CommandHandler encapsula los endpoints HTTP del lado de escritura.
// Las mutaciones responden 202: el lado de lectura converge de forma eventual.
type CommandHandler struct {
	dispatcher *application.CommandDispatcher
	es         *application.EventSourcingHandler
	log        *zap.Logger
}

func NewCommandHandler(dispatcher *application.CommandDispatcher, es *application.EventSourcingHandler, log *zap.Logger) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher, es: es, log: log}
}

// ---------------- Handlers ----------------

// CreateProduct endpoint POST /v1/products
func (h *CommandHandler) CreateProduct(c *gin.Context) {
	var req struct {
		Name          string  `json:"name" binding:"required"`
		Description   string  `json:"description"`
		Category      string  `json:"category"`
		Price         float64 `json:"price"`
		StoreID       string  `json:"store_id" binding:"required"`
		InitialAmount int     `json:"initial_amount"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := domain.CreateProduct{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		StoreID:       req.StoreID,
		InitialAmount: req.InitialAmount,
	}

	if err := h.dispatcher.Send(c.Request.Context(), cmd); err != nil {
		h.respondCommandError(c, err)
		return
	}

	version, err := h.es.CurrentVersion(c.Request.Context(), cmd.ID)
	if err != nil {
		// El comando ya se aplicó; sin versión solo perdemos el ETag.
		h.log.Warn("⚠️ No se pudo leer la versión tras crear", zap.String("product_id", cmd.ID), zap.Error(err))
	}
	c.Header("ETag", strconv.Itoa(version))

	c.JSON(http.StatusAccepted, gin.H{
		"message":    "product creation accepted",
		"product_id": cmd.ID,
		"version":    version,
	})
}

// UpdateStock endpoint PUT /v1/products/:id/stock
//
// If-Match es opcional: si el cliente lo envía, la versión declarada debe
// coincidir con la actual del stream antes de ejecutar el comando.
func (h *CommandHandler) UpdateStock(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req struct {
		Operation string `json:"operation" binding:"required"`
		Amount    int    `json:"amount"`
		Reason    string `json:"reason"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if ifMatch := c.GetHeader("If-Match"); ifMatch != "" {
		expected, err := strconv.Atoi(ifMatch)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "If-Match must be a stream version number"})
			return
		}
		current, err := h.es.CurrentVersion(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if current != expected {
			c.JSON(http.StatusConflict, gin.H{
				"error":            "stream version mismatch",
				"expected_version": expected,
				"current_version":  current,
			})
			return
		}
	}

	cmd := domain.UpdateStock{
		ID:        id,
		Operation: req.Operation,
		Amount:    req.Amount,
		Reason:    req.Reason,
	}

	if err := h.dispatcher.Send(c.Request.Context(), cmd); err != nil {
		h.respondCommandError(c, err)
		return
	}

	version, err := h.es.CurrentVersion(c.Request.Context(), id)
	if err != nil {
		h.log.Warn("⚠️ No se pudo leer la versión tras actualizar", zap.String("product_id", id), zap.Error(err))
	}
	c.Header("ETag", strconv.Itoa(version))

	c.JSON(http.StatusAccepted, gin.H{
		"message":    "stock update accepted",
		"product_id": id,
		"version":    version,
	})
}

// respondCommandError traduce errores de dominio a códigos HTTP.
func (h *CommandHandler) respondCommandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, domain.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent modification detected, retry the command"})
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrUnknownOperation),
		errors.Is(err, domain.ErrInvalidProduct):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnroutableCommand):
		h.log.Error("Comando sin handler registrado", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "command cannot be routed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
