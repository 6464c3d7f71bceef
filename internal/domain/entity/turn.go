package entity

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is a polymorphic content element within a turn. Exactly one of the
// fields is populated (Thought tags a Text part as internal reasoning).
type Part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall is a model request to invoke a tool.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// FunctionResponse carries a tool result back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Turn is one entry in a session's conversation history.
type Turn struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// TextPart builds a visible text part.
func TextPart(text string) Part { return Part{Text: text} }

// ThoughtPart builds an internal reasoning part. Thoughts stay in the
// in-memory history for model coherence but are never surfaced to clients
// and are stripped before persistence.
func ThoughtPart(text string) Part { return Part{Text: text, Thought: true} }

// CallPart builds a function-call part.
func CallPart(name string, args map[string]any) Part {
	return Part{FunctionCall: &FunctionCall{Name: name, Args: args}}
}

// ResponsePart builds a function-response part.
func ResponsePart(name string, response map[string]any) Part {
	return Part{FunctionResponse: &FunctionResponse{Name: name, Response: response}}
}

// FunctionCalls returns the turn's function-call parts in order.
func (t Turn) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range t.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, *p.FunctionCall)
		}
	}
	return calls
}

// VisibleText concatenates the turn's non-thought text parts.
func (t Turn) VisibleText() string {
	var out string
	for _, p := range t.Parts {
		if p.Text != "" && !p.Thought {
			out += p.Text
		}
	}
	return out
}
