package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
)

var (
	// ErrUnknownEntity marks lookups against an entity the registry does not
	// define with the requested kind. Maps to HTTP 404.
	ErrUnknownEntity = errors.New("unknown entity")
)

// Service implements the read side used by reporting consumers. Every read
// sees committed transitions only.
type Service struct {
	registry *entity.Registry
	reader   storage.Reader
}

// NewService creates a new projection service.
func NewService(registry *entity.Registry, reader storage.Reader) *Service {
	if registry == nil {
		panic("projection: registry must not be nil")
	}
	if reader == nil {
		panic("projection: reader must not be nil")
	}
	return &Service{registry: registry, reader: reader}
}

// CurrentView returns the current version of every business key.
func (s *Service) CurrentView(ctx context.Context, name string) (*DimensionListResponse, error) {
	def, err := s.dimension(name)
	if err != nil {
		return nil, err
	}
	records, err := s.reader.CurrentView(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("current view %s: %w", name, err)
	}
	resp := &DimensionListResponse{
		Entity:  name,
		Policy:  def.Policy,
		Count:   len(records),
		Records: make([]v1.DimensionView, 0, len(records)),
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, rec.View())
	}
	return resp, nil
}

// Lookup returns the current version, or the version effective at AsOf.
func (s *Service) Lookup(ctx context.Context, req LookupRequest) (*v1.DimensionView, error) {
	if _, err := s.dimension(req.Entity); err != nil {
		return nil, err
	}
	if req.AsOf.IsZero() {
		rec, err := s.reader.LookupCurrent(ctx, req.Entity, req.BusinessKey)
		if err != nil {
			return nil, fmt.Errorf("lookup %s %q: %w", req.Entity, req.BusinessKey, err)
		}
		view := rec.View()
		return &view, nil
	}

	history, err := s.reader.History(ctx, req.Entity, req.BusinessKey)
	if err != nil {
		return nil, fmt.Errorf("history %s %q: %w", req.Entity, req.BusinessKey, err)
	}
	rec := versionAt(history, req.AsOf)
	if rec == nil {
		return nil, &dserr.NotFoundError{Entity: req.Entity, Key: req.BusinessKey}
	}
	view := rec.View()
	return &view, nil
}

// History returns every version of a business key, oldest first.
func (s *Service) History(ctx context.Context, name, businessKey string) (*HistoryResponse, error) {
	if _, err := s.dimension(name); err != nil {
		return nil, err
	}
	history, err := s.reader.History(ctx, name, businessKey)
	if err != nil {
		return nil, fmt.Errorf("history %s %q: %w", name, businessKey, err)
	}
	if len(history) == 0 {
		return nil, &dserr.NotFoundError{Entity: name, Key: businessKey}
	}
	resp := &HistoryResponse{
		Entity:      name,
		BusinessKey: businessKey,
		Versions:    make([]v1.DimensionView, 0, len(history)),
	}
	for _, rec := range history {
		resp.Versions = append(resp.Versions, rec.View())
	}
	return resp, nil
}

// Fact returns one fact row by natural key.
func (s *Service) Fact(ctx context.Context, name, naturalKey string) (*v1.FactView, error) {
	def, ok := s.registry.Get(name)
	if !ok || def.IsDimension() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	rec, err := s.reader.FactByNaturalKey(ctx, name, naturalKey)
	if err != nil {
		return nil, fmt.Errorf("fact %s %q: %w", name, naturalKey, err)
	}
	view := rec.View()
	return &view, nil
}

func (s *Service) dimension(name string) (*entity.Definition, error) {
	def, ok := s.registry.Get(name)
	if !ok || !def.IsDimension() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return def, nil
}

// versionAt picks the version whose [EffectiveAt, EndAt) interval holds t.
func versionAt(history []*storage.DimensionRecord, t time.Time) *storage.DimensionRecord {
	for _, rec := range history {
		if rec.EffectiveAt.After(t) {
			continue
		}
		if rec.EndAt == nil || t.Before(*rec.EndAt) {
			return rec
		}
	}
	return nil
}
