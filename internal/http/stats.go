package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/database/books"
)

// StatsStore defines the aggregate query behind the dashboard.
type StatsStore interface {
	ComputeStats() (*books.Stats, error)
}

type StatsController struct {
	store StatsStore
}

func NewStatsController(store StatsStore) *StatsController {
	return &StatsController{store: store}
}

// GetStats returns library-wide reading statistics.
// GET /api/stats
func (sc *StatsController) GetStats(c *gin.Context) {
	stats, err := sc.store.ComputeStats()
	if err != nil {
		respondInternalError(c, err, "compute stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
