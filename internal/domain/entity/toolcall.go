package entity

// ToolCallInfo is the unit of observability for a single tool invocation.
// Grouped calls share one synthetic info whose label carries the "×N" suffix,
// while the audit trail in the final answer keeps every individual entry.
type ToolCallInfo struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	DurationMs int64  `json:"durationMs"`
	CacheHit   bool   `json:"cacheHit,omitempty"`
	Error      string `json:"error,omitempty"`
}
