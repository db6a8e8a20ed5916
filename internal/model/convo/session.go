package convo

import "time"

// Session correlates a messaging-platform user with accumulated
// conversation state. Sessions live for the lifetime of the process.
type Session struct {
	ID        string
	UserID    string
	Context   Context
	CreatedAt time.Time
}

// Context is the state object passed between conversation turns and action
// handlers. It round-trips through the NLU engine as the JSON body of each
// converse call, so every field is optional on the wire.
type Context struct {
	// Intent is the last intent the engine classified for this session.
	Intent string `json:"intent,omitempty"`
	// Response holds text computed by an action handler for the engine to
	// relay back to the user.
	Response string `json:"response,omitempty"`
	// Open reports the result of the last business-hours check.
	Open *bool `json:"open,omitempty"`
	// Done marks the conversation as finished; the dispatcher drops the
	// session once it sees this flag.
	Done bool `json:"done,omitempty"`
}
