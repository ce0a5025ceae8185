package projection

import (
	"errors"
	"net/http"

	httperr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/dimensions/:entity", s.HandleCurrentView)
	r.GET("/v1/dimensions/:entity/:business_key", s.HandleLookup)
	r.GET("/v1/dimensions/:entity/:business_key/history", s.HandleHistory)
	r.GET("/v1/facts/:entity/:natural_key", s.HandleFact)
}

// HandleCurrentView handles GET /v1/dimensions/:entity
func (s *Service) HandleCurrentView(c *gin.Context) {
	resp, err := s.CurrentView(c.Request.Context(), c.Param("entity"))
	if err != nil {
		writeError(c, err, "Failed to read current view")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleLookup handles GET /v1/dimensions/:entity/:business_key
// Query parameters: as_of (RFC3339, optional)
func (s *Service) HandleLookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Lookup(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to look up record")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHistory handles GET /v1/dimensions/:entity/:business_key/history
func (s *Service) HandleHistory(c *gin.Context) {
	resp, err := s.History(c.Request.Context(), c.Param("entity"), c.Param("business_key"))
	if err != nil {
		writeError(c, err, "Failed to read history")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleFact handles GET /v1/facts/:entity/:natural_key
func (s *Service) HandleFact(c *gin.Context) {
	resp, err := s.Fact(c.Request.Context(), c.Param("entity"), c.Param("natural_key"))
	if err != nil {
		writeError(c, err, "Failed to read fact")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrUnknownEntity):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpEntityNotFoundError,
			Message:   "Unknown entity",
			Details:   err.Error(),
		})
	case errors.Is(err, httperr.ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpRecordNotFoundError,
			Message:   "Record not found",
			Details:   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   internalMsg,
			Details:   err.Error(),
		})
	}
}
