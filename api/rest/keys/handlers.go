package keys

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// returns rotation state for every configured key pool. Secrets are
// redacted by the pool before they reach this handler.
func StatsHandler(pools map[string]StatsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := Response{Pools: make(map[string]PoolStats, len(pools))}

		for name, pool := range pools {
			response.Pools[name] = PoolStats{
				Size: pool.Len(),
				Keys: pool.Stats(),
			}
		}

		c.JSON(http.StatusOK, response)
	}
}
