package ingestion

import (
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/gin-gonic/gin"
)

type Service struct {
	registry         *entity.Registry
	store            storage.StagingStore
	maxBodySizeBytes int
}

func NewService(reg *entity.Registry, store storage.StagingStore, maxBodySizeMB int) *Service {
	if reg == nil {
		panic("ingestion: registry must not be nil")
	}
	if store == nil {
		panic("ingestion: staging store must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		registry:         reg,
		store:            store,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the staging routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/entities/:entity/records", s.StageHandler)
}
