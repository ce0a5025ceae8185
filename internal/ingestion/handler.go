package ingestion

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	httperr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgNoRecords      = "Request contains no records"
	msgAllRejected    = "No record passed validation"
	msgStageFailed    = "Failed to stage records"
	msgUnknownEntity  = "Unknown entity"
	msgBodyTooLarge   = "Request body exceeds maximum allowed size"
	bytesPerMB        = 1024 * 1024
)

// ingestionError carries the structured HTTP error shape from a helper back to the handler.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// StageHandler validates a batch of canonical records for one entity and
// stages the valid ones. The sync job applies them later.
func (s *Service) StageHandler(c *gin.Context) {
	name := c.Param("entity")
	def, ok := s.registry.Get(name)
	if !ok {
		writeError(c, &ingestionError{
			statusCode: http.StatusNotFound,
			errorType:  httperr.HttpEntityNotFoundError,
			message:    msgUnknownEntity,
			details:    map[string]interface{}{"entity": name},
		})
		return
	}

	req, payloadSize, ierr := s.parseRequest(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	valid, rejected := validateRecords(def, req.Records)
	if len(valid) == 0 {
		slog.Warn("[Ingestion] All records rejected", "entity", name, "rejected", len(rejected))
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpRecordValidationError,
			message:    msgAllRejected,
			details:    map[string]interface{}{"rejected": rejected},
		})
		return
	}

	resp, ierr := s.stage(c.Request.Context(), name, valid)
	if ierr != nil {
		writeError(c, ierr)
		return
	}
	resp.Rejected = rejected

	slog.Info("[Ingestion] Staged records",
		"entity", name,
		"batch_id", resp.BatchID,
		"accepted", resp.Accepted,
		"rejected", len(rejected),
		"payload_size", payloadSize,
	)
	c.JSON(http.StatusAccepted, resp)
}

// parseRequest reads the size-limited body and binds the stage request.
func (s *Service) parseRequest(c *gin.Context) (*v1.StageRequest, int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgBodyTooLarge,
			details: map[string]interface{}{
				"max_size_mb": maxBytes / bytesPerMB,
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var req v1.StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}
	if len(req.Records) == 0 {
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpRecordValidationError,
			message:    msgNoRecords,
		}
	}
	return &req, len(bodyBytes), nil
}

// validateRecords splits records into stageable ones and rejections that
// keep their request index.
func validateRecords(def *entity.Definition, records []v1.Record) ([]v1.Record, []v1.RejectedRecord) {
	valid := make([]v1.Record, 0, len(records))
	var rejected []v1.RejectedRecord
	for i, rec := range records {
		if err := def.Validate(rec); err != nil {
			rejected = append(rejected, entity.Rejection(i, err))
			continue
		}
		valid = append(valid, rec)
	}
	return valid, rejected
}

// stage persists the valid records as one staged batch.
func (s *Service) stage(ctx context.Context, name string, records []v1.Record) (*v1.StageResponse, *ingestionError) {
	receipt, err := s.store.Stage(ctx, name, records)
	if err != nil {
		slog.Error("[Ingestion] Failed to stage records", "entity", name, "records", len(records), "error", err)
		return nil, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgStageFailed,
		}
	}
	return &v1.StageResponse{
		BatchID:  receipt.BatchID,
		Entity:   name,
		Accepted: len(records),
	}, nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
