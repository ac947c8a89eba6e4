package http

import "github.com/gin-gonic/gin"

func RegisterQueryRoutes(r *gin.Engine, handler *QueryHandler) {
	products := r.Group("/v1/products")
	{
		products.GET("", handler.ListProducts)
		products.GET("/:id", handler.GetProduct)
	}
}
