package models

// Envelope is the unit of data flowing along a workflow edge: a structured
// value plus routing metadata. Envelopes traveling an error route carry the
// error descriptor of the failure being recovered.
type Envelope struct {
	Data   map[string]any   `json:"data"`
	RunID  string           `json:"run_id"`
	NodeID string           `json:"node_id,omitempty"` // node that produced this envelope
	Hops   int              `json:"hops"`
	Error  *ErrorDescriptor `json:"error,omitempty"`
}

// ErrorDescriptor describes a node failure traveling along an error route or
// recorded on a failed NodeState.
type ErrorDescriptor struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	NodeID  string `json:"node_id"`
	Attempt int    `json:"attempt,omitempty"`
}

// NewEnvelope creates the initial envelope for a run, seeded from trigger
// payload data.
func NewEnvelope(runID string, data map[string]any) *Envelope {
	if data == nil {
		data = map[string]any{}
	}

	return &Envelope{Data: data, RunID: runID}
}

// Next derives the envelope delivered to a downstream node: same run, hop
// counter advanced, data optionally replaced.
func (e *Envelope) Next(fromNodeID string, data map[string]any) *Envelope {
	if data == nil {
		data = e.Data
	}

	return &Envelope{
		Data:   data,
		RunID:  e.RunID,
		NodeID: fromNodeID,
		Hops:   e.Hops + 1,
		Error:  e.Error,
	}
}

// Clone returns a deep copy of the envelope. Snapshots stored on NodeState
// must not alias data still being mutated by downstream transforms.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}

	clone := *e
	clone.Data = deepCopyMap(e.Data)

	if e.Error != nil {
		errCopy := *e.Error
		clone.Error = &errCopy
	}

	return &clone
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}

	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}

		return out
	default:
		// Scalars are immutable.
		return v
	}
}
