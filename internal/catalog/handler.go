package catalog

import (
	"net/http"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	httperr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// HandleList handles GET /v1/entities.
func (s *Service) HandleList(c *gin.Context) {
	c.JSON(http.StatusOK, s.list())
}

// HandleGet handles GET /v1/entities/:entity.
func (s *Service) HandleGet(c *gin.Context) {
	def, ok := s.registry.Get(c.Param("entity"))
	if !ok {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpEntityNotFoundError,
			Message:   "Unknown entity",
			Details:   c.Param("entity"),
		})
		return
	}
	c.JSON(http.StatusOK, toResponse(def))
}

// HandleValidate handles POST /v1/entities/:entity/validate (dry-run).
// Nothing is staged.
func (s *Service) HandleValidate(c *gin.Context) {
	name := c.Param("entity")
	def, ok := s.registry.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpEntityNotFoundError,
			Message:   "Unknown entity",
			Details:   name,
		})
		return
	}

	var req v1.StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}

	resp := ValidateResponse{Entity: name}
	for i, rec := range req.Records {
		if err := def.Validate(rec); err != nil {
			resp.Rejected = append(resp.Rejected, entity.Rejection(i, err))
			continue
		}
		resp.Valid++
	}
	c.JSON(http.StatusOK, resp)
}
