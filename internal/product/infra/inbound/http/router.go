package http

import "github.com/gin-gonic/gin"

// RegisterCommandRoutes monta el lado de escritura. Las mutaciones pasan por
// el middleware de idempotencia; las rutas administrativas no lo necesitan.
func RegisterCommandRoutes(r *gin.Engine, handler *CommandHandler, idempotency gin.HandlerFunc) {
	products := r.Group("/v1/products", idempotency)
	{
		products.POST("", handler.CreateProduct)
		products.PUT("/:id/stock", handler.UpdateStock)
	}
}

func RegisterAdminRoutes(r *gin.Engine, handler *AdminHandler) {
	v1 := r.Group("/v1")
	{
		v1.GET("/events", handler.ListEvents)
		v1.GET("/events/aggregates", handler.ListAggregates)
		v1.POST("/projections/rebuild", handler.RebuildProjections)
		v1.GET("/projections/status", handler.ProjectionStatus)
		v1.GET("/idempotency/:key", handler.GetIdempotencyRecord)
		v1.GET("/dlt", handler.ListDeadLetters)
		v1.POST("/dlt/replay", handler.ReplayDeadLetters)
	}
}
