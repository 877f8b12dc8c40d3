package domain

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Modality is the kind of generation a model supports. The zero value means
// "no filter".
type Modality string

const (
	ModalityNone  Modality = ""
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityVideo Modality = "video"
)

// ParseModality accepts text, image, video or an empty string.
func ParseModality(value string) (Modality, bool) {
	switch m := Modality(strings.ToLower(strings.TrimSpace(value))); m {
	case ModalityNone, ModalityText, ModalityImage, ModalityVideo:
		return m, true
	default:
		return ModalityNone, false
	}
}

// ModelDescriptor is one entry of the upstream model catalog. Raw keeps the
// provider's original fields so listings stay as rich as the upstream.
type ModelDescriptor struct {
	ID          string
	Name        string
	Description string
	Type        string
	Raw         map[string]interface{}
}

// MarshalJSON emits the raw upstream fields with the normalized ones on top.
func (m ModelDescriptor) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.Raw)+4)
	for k, v := range m.Raw {
		out[k] = v
	}
	out["id"] = m.ID
	if m.Name != "" {
		out["name"] = m.Name
	}
	if m.Description != "" {
		out["description"] = m.Description
	}
	if m.Type != "" {
		out["type"] = m.Type
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a descriptor written by MarshalJSON.
func (m *ModelDescriptor) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	desc, ok := NewModelDescriptor(raw)
	if !ok {
		return ErrInvalidModel
	}
	*m = desc
	return nil
}

// NewModelDescriptor normalizes a heterogeneous upstream record. The id comes
// from id, model_id or slug; records without one are rejected. Name and
// description fall back to model_spec, type falls back to model_type.
func NewModelDescriptor(raw map[string]interface{}) (ModelDescriptor, bool) {
	id := ""
	for _, key := range []string{"id", "model_id", "slug"} {
		if v, ok := raw[key]; ok && v != nil {
			id = stringify(v)
			if id != "" {
				break
			}
		}
	}
	if id == "" {
		return ModelDescriptor{}, false
	}

	spec, _ := raw["model_spec"].(map[string]interface{})
	if spec == nil {
		spec, _ = raw["spec"].(map[string]interface{})
	}

	return ModelDescriptor{
		ID:          id,
		Name:        firstString(raw["name"], specField(spec, "name")),
		Description: firstString(raw["description"], specField(spec, "description")),
		Type:        firstString(raw["type"], raw["model_type"]),
		Raw:         raw,
	}, true
}

func specField(spec map[string]interface{}, key string) interface{} {
	if spec == nil {
		return nil
	}
	return spec[key]
}

func firstString(values ...interface{}) string {
	for _, v := range values {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64, bool, json.Number:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return ""
	}
}

// AllowListEntry is an operator-curated model id for a modality.
type AllowListEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Descriptor returns the bare descriptor used when the live catalog has no
// richer data for the entry.
func (e AllowListEntry) Descriptor() ModelDescriptor {
	return ModelDescriptor{ID: e.ID, Name: e.Name}
}

// CatalogClient is the upstream catalog collaborator.
type CatalogClient interface {
	ListModels(ctx context.Context) ([]ModelDescriptor, error)
}

// CatalogSnapshot is a fetched catalog stamped with the time it was read from
// the upstream.
type CatalogSnapshot struct {
	FetchedAt time.Time         `json:"fetched_at"`
	Models    []ModelDescriptor `json:"models"`
}

// CatalogSnapshotCache is an optional cross-instance store for the fetched
// catalog. A miss returns nil, nil.
type CatalogSnapshotCache interface {
	LoadCatalog(ctx context.Context) (*CatalogSnapshot, error)
	StoreCatalog(ctx context.Context, snapshot CatalogSnapshot) error
}
