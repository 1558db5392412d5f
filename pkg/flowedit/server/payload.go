package server

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SaveRequest is the body of POST /api/flows/save. Nodes and edges are kept
// as raw JSON so fields the editor adds are stored untouched.
type SaveRequest struct {
	ID         *string           `json:"id" validate:"omitempty,max=128"`
	BusinessID string            `json:"business_id,omitempty" validate:"omitempty,max=128"`
	Version    int64             `json:"version,omitempty" validate:"gte=0"`
	Nodes      []json.RawMessage `json:"nodes" validate:"required"`
	Edges      []json.RawMessage `json:"edges"`
}

// SaveResponse is returned by POST /api/flows/save.
type SaveResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Version int64  `json:"version"`
}

// Document is returned by GET /api/flows/get/{id}.
type Document struct {
	ID         string            `json:"_id"`
	BusinessID string            `json:"business_id,omitempty"`
	Version    int64             `json:"version"`
	Nodes      []json.RawMessage `json:"nodes"`
	Edges      []json.RawMessage `json:"edges"`
}

// Summary is one entry of GET /api/flows.
type Summary struct {
	ID         string `json:"_id"`
	BusinessID string `json:"business_id,omitempty"`
	Version    int64  `json:"version"`
	UpdatedAt  string `json:"updated_at"`
	Size       int64  `json:"size"`
}

// ErrorResponse is the body of every non-2xx reply. Message mirrors the
// save response so clients can surface it either way.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// storedDoc is the encoding kept in store.Record.Data.
type storedDoc struct {
	Nodes []json.RawMessage `json:"nodes"`
	Edges []json.RawMessage `json:"edges"`
}

type nodeRef struct {
	ID string `json:"id" validate:"required,max=256"`
}

type edgeRef struct {
	ID     string `json:"id" validate:"required,max=256"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// placeholderID is the editor's rendering-only node; it is never stored.
const placeholderID = "start-node"

// validateSave checks the request shape and the flow's referential
// integrity: unique node ids and no edge pointing at a missing node.
func validateSave(req *SaveRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	ids := make(map[string]struct{}, len(req.Nodes))
	for i, raw := range req.Nodes {
		var n nodeRef
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("nodes[%d]: %v", i, err)
		}
		if err := validate.Struct(n); err != nil {
			return fmt.Errorf("nodes[%d]: %w", i, formatValidationError(err))
		}
		if n.ID == placeholderID {
			return fmt.Errorf("nodes[%d]: %q is reserved", i, placeholderID)
		}
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("nodes[%d]: duplicate id %q", i, n.ID)
		}
		ids[n.ID] = struct{}{}
	}

	for i, raw := range req.Edges {
		var e edgeRef
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("edges[%d]: %v", i, err)
		}
		if err := validate.Struct(e); err != nil {
			return fmt.Errorf("edges[%d]: %w", i, formatValidationError(err))
		}
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("edges[%d]: source %q does not exist", i, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("edges[%d]: target %q does not exist", i, e.Target)
		}
	}
	return nil
}

func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
