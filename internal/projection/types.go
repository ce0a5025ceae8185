package projection

import (
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
)

// DimensionListResponse is the current view of one dimension.
type DimensionListResponse struct {
	Entity  string             `json:"entity"`
	Policy  entity.Policy      `json:"policy"`
	Count   int                `json:"count"`
	Records []v1.DimensionView `json:"records"`
}

// HistoryResponse lists every version of one business key, oldest first.
type HistoryResponse struct {
	Entity      string             `json:"entity"`
	BusinessKey string             `json:"business_key"`
	Versions    []v1.DimensionView `json:"versions"`
}

// LookupRequest selects one dimension record. A zero AsOf means the current
// version.
type LookupRequest struct {
	Entity      string    `uri:"entity" binding:"required"`
	BusinessKey string    `uri:"business_key" binding:"required"`
	AsOf        time.Time `form:"as_of" time_format:"2006-01-02T15:04:05Z07:00"`
}
