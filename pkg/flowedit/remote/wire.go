package remote

import "github.com/randalmurphal/flowedit/pkg/flowedit"

// SaveRequest is the body of POST /api/flows/save. A nil ID asks the store
// to assign one.
type SaveRequest struct {
	ID         *string         `json:"id"`
	BusinessID string          `json:"business_id,omitempty"`
	Version    int64           `json:"version,omitempty"`
	Nodes      []flowedit.Node `json:"nodes"`
	Edges      []flowedit.Edge `json:"edges"`
}

// SaveResponse is the store's reply to a save.
type SaveResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Version int64  `json:"version,omitempty"`

	// Size is the encoded request size in bytes. It is filled in by the
	// client and never sent.
	Size int64 `json:"-"`
}

// Document is the store's reply to a get. Nodes is nil when the field was
// absent or null, which the client reports as ErrMalformed.
type Document struct {
	ID         string          `json:"_id"`
	BusinessID string          `json:"business_id,omitempty"`
	Version    int64           `json:"version,omitempty"`
	Nodes      []flowedit.Node `json:"nodes"`
	Edges      []flowedit.Edge `json:"edges"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// newSaveRequest encodes f for the wire. The placeholder never appears in
// f's nodes, so nothing needs filtering.
func newSaveRequest(f *flowedit.Flow, businessID string) SaveRequest {
	req := SaveRequest{
		BusinessID: businessID,
		Version:    f.Version,
		Nodes:      f.Nodes(),
		Edges:      f.Edges(),
	}
	if f.ID != "" {
		id := f.ID
		req.ID = &id
	}
	return req
}
