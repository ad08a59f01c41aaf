package domain

// OperationResult is the parsed state of a server-tracked asynchronous job.
// It is built fresh from each poll response and never mutated afterwards.
type OperationResult struct {
	OperationID string `json:"operation_id"`
	Done        bool   `json:"done"`
	// Error is the server failure payload. Present only on terminal failures.
	Error    map[string]any `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Response map[string]any `json:"response,omitempty"`
	// Raw keeps the complete payload so fields not modeled here survive a
	// round-trip through the manifest.
	Raw map[string]any `json:"raw,omitempty"`
}

// OperationResultFromRaw builds an OperationResult from a decoded server
// payload. fallbackID is used when the payload omits operation_id.
func OperationResultFromRaw(raw map[string]any, fallbackID string) *OperationResult {
	res := &OperationResult{
		OperationID: fallbackID,
		Raw:         raw,
	}
	if raw == nil {
		return res
	}
	if id, ok := raw["operation_id"].(string); ok && id != "" {
		res.OperationID = id
	}
	if done, ok := raw["done"].(bool); ok {
		res.Done = done
	}
	if m, ok := raw["error"].(map[string]any); ok {
		res.Error = m
	}
	if m, ok := raw["metadata"].(map[string]any); ok {
		res.Metadata = m
	}
	if m, ok := raw["response"].(map[string]any); ok {
		res.Response = m
	}
	return res
}

// WorldID returns metadata.world_id when present and non-empty.
func (r *OperationResult) WorldID() string {
	if r == nil || r.Metadata == nil {
		return ""
	}
	if id, ok := r.Metadata["world_id"].(string); ok {
		return id
	}
	return ""
}

// Failed reports whether the operation terminated with a failure payload.
func (r *OperationResult) Failed() bool {
	return r != nil && r.Done && len(r.Error) > 0
}
