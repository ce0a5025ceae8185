// Package catalog exposes the configured entity definitions over HTTP.
package catalog

import (
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	"github.com/gin-gonic/gin"
)

// Service provides the read-only entity catalog API.
type Service struct {
	registry *entity.Registry
}

// NewService creates a new catalog API service.
func NewService(registry *entity.Registry) *Service {
	if registry == nil {
		panic("catalog.NewService: registry must not be nil")
	}
	return &Service{registry: registry}
}

// RegisterRoutes registers the catalog API routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	entities := r.Group("/v1/entities")
	{
		entities.GET("", s.HandleList)
		entities.GET("/:entity", s.HandleGet)
		entities.POST("/:entity/validate", s.HandleValidate)
	}
}

// list returns dimensions then facts, each in load order.
func (s *Service) list() []*EntityResponse {
	dims, facts := s.registry.Dimensions(), s.registry.Facts()
	out := make([]*EntityResponse, 0, len(dims)+len(facts))
	for _, def := range dims {
		out = append(out, toResponse(def))
	}
	for _, def := range facts {
		out = append(out, toResponse(def))
	}
	return out
}
