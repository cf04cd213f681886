package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/mirror"
)

// MirrorExporter writes the whole library out as mirror documents.
type MirrorExporter interface {
	ExportAll() (mirror.ExportResult, error)
}

// MirrorImporter reads mirror documents back into the library.
type MirrorImporter interface {
	ImportAll() (mirror.ImportResult, error)
}

// ImportHistoryStore exposes past import runs.
type ImportHistoryStore interface {
	Recent(limit int) ([]entities.ImportHistory, error)
}

type MirrorController struct {
	exporter MirrorExporter
	importer MirrorImporter
	history  ImportHistoryStore
}

func NewMirrorController(exporter MirrorExporter, importer MirrorImporter, history ImportHistoryStore) *MirrorController {
	return &MirrorController{exporter: exporter, importer: importer, history: history}
}

// Export writes every book to the mirror directory.
// POST /api/mirror/export
func (mc *MirrorController) Export(c *gin.Context) {
	result, err := mc.exporter.ExportAll()
	if err != nil {
		respondInternalError(c, err, "export mirror")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Import reads every mirror document and applies it to the library.
// Per-file failures are reported in the result, not as a request error.
// POST /api/mirror/import
func (mc *MirrorController) Import(c *gin.Context) {
	result, err := mc.importer.ImportAll()
	if err != nil {
		respondInternalError(c, err, "import mirror")
		return
	}
	c.JSON(http.StatusOK, result)
}

// History returns recent import runs, newest first.
// GET /api/mirror/history
func (mc *MirrorController) History(c *gin.Context) {
	limit := 0
	if value, fe := parseQueryInt(c, "limit"); fe != nil {
		respondBadRequest(c, fe.Message)
		return
	} else if value != nil {
		limit = *value
	}

	runs, err := mc.history.Recent(limit)
	if err != nil {
		respondInternalError(c, err, "load import history")
		return
	}
	if runs == nil {
		runs = []entities.ImportHistory{}
	}
	c.JSON(http.StatusOK, runs)
}
