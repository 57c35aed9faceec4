package transcript

import (
	"encoding/json"
	"time"
)

// Run groups the exchanges of one command invocation.
type Run struct {
	ID        string
	Command   string
	Provider  string
	Model     string
	CreatedAt time.Time
}

// Exchange is one request/response pair with the model.
type Exchange struct {
	ID        int64
	RunID     string
	Stage     string // "request", "repair" or a pipeline step name
	System    string
	Messages  []Message
	Response  string
	Error     string
	LatencyMS int64
	InputTok  int
	OutputTok int
	CreatedAt time.Time
}

// Message mirrors llm.Message for storage.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toJSON(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func fromJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
