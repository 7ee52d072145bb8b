// Package api exposes a thin, read-only HTTP surface over a committed
// belief-graph cache. Grounded on the teacher's internal/api/routes.go
// (gin route groups under /api/v1, a permissive CORSMiddleware, a plain
// health check), narrowed from full node/edge/cluster CRUD to the three
// BeliefSource query shapes — the compiler owns every write, so there is
// no mutating route left to serve.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ali01/noetgraph/internal/cache"
)

// SetupRoutes attaches the query API to router, reading from source.
func SetupRoutes(router *gin.Engine, source cache.BeliefSource) {
	router.Use(CORSMiddleware())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)

		v1.GET("/networks/:network/balanced", getBalanced(source))
		v1.GET("/networks/:network/unbalanced", getUnbalanced(source))
		v1.GET("/nodes/:bid/trace", getTrace(source))
	}
}

// CORSMiddleware allows the graph-viewer frontend (a separate origin in
// development) to call this API.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status": "ok",
	})
}
