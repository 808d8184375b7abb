package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "check" | "check_batch" | "close"
	Payload json.RawMessage `json:"payload"`
}

// CheckPayload is the payload for "check" requests
type CheckPayload struct {
	Root         string   `json:"root"`
	Packages     []string `json:"packages,omitempty"`
	KindsInclude []string `json:"kinds_include,omitempty"`
	KindsExclude []string `json:"kinds_exclude,omitempty"`
}

// CheckBatchPayload is the payload for "check_batch" requests
type CheckBatchPayload struct {
	Items []CheckPayload `json:"items"`
}

// CheckBatchResult holds one report per batch item, in request order. A
// failed item has a nil report and an error message.
type CheckBatchResult struct {
	Results []CheckBatchItem `json:"results"`
}

// CheckBatchItem is the outcome of one batch item.
type CheckBatchItem struct {
	Root   string        `json:"root"`
	Report *types.Report `json:"report,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"` // "ready" | "check" | "check_batch" | "error"
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version string `json:"version"`
}
