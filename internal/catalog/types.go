package catalog

import (
	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
)

// EntityResponse describes one configured entity.
type EntityResponse struct {
	Name        string          `json:"name"`
	Kind        entity.Kind     `json:"kind"`
	Order       int             `json:"order"`
	KeyColumn   string          `json:"key_column"`
	Policy      entity.Policy   `json:"policy,omitempty"`
	Tracked     []string        `json:"tracked,omitempty"`
	Untracked   []string        `json:"untracked,omitempty"`
	References  []ReferenceInfo `json:"references,omitempty"`
	Measures    []string        `json:"measures,omitempty"`
	Derived     []DerivedInfo   `json:"derived,omitempty"`
	Attributes  []string        `json:"attributes,omitempty"`
	Strict      bool            `json:"strict"`
	Fingerprint string          `json:"fingerprint,omitempty"`
}

type ReferenceInfo struct {
	Column string `json:"column"`
	Entity string `json:"entity"`
	Name   string `json:"name"`
}

type DerivedInfo struct {
	Name   string   `json:"name"`
	Op     string   `json:"op"`
	Args   []string `json:"args,omitempty"`
	Factor string   `json:"factor,omitempty"`
}

// ValidateResponse is the dry-run result of POST /v1/entities/:entity/validate.
type ValidateResponse struct {
	Entity   string              `json:"entity"`
	Valid    int                 `json:"valid"`
	Rejected []v1.RejectedRecord `json:"rejected,omitempty"`
}

func toResponse(def *entity.Definition) *EntityResponse {
	resp := &EntityResponse{
		Name:        def.Name,
		Kind:        def.Kind,
		Order:       def.Order,
		KeyColumn:   def.KeyColumn(),
		Policy:      def.Policy,
		Tracked:     def.Tracked,
		Untracked:   def.Untracked,
		Measures:    def.Measures,
		Attributes:  def.Attributes,
		Strict:      def.Strict,
		Fingerprint: def.Fingerprint,
	}
	for _, ref := range def.References {
		resp.References = append(resp.References, ReferenceInfo{
			Column: ref.Column,
			Entity: ref.Entity,
			Name:   ref.ReferenceName(),
		})
	}
	for _, dm := range def.Derived {
		resp.Derived = append(resp.Derived, DerivedInfo{Name: dm.Name, Op: dm.Op, Args: dm.Args, Factor: dm.Factor})
	}
	return resp
}
