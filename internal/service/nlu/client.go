// Package nlu wraps the hosted NLU engine's converse API and drives its
// run-actions loop: the engine classifies the user's text against the
// session context and repeatedly picks the next step (run an action, relay
// a message, or stop) until the conversation turn completes.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nmoralesv/horasbot/internal/model/convo"
)

const (
	apiVersion = "20160526"

	// maxSteps caps one turn of the run-actions loop so a misbehaving
	// engine cannot spin forever.
	maxSteps = 10
)

var ErrTooManySteps = errors.New("run-actions loop exceeded step limit")

// Entities carries whatever the engine extracted from the user's text,
// keyed by entity name.
type Entities map[string][]EntityValue

// EntityValue is a single extracted value with the engine's confidence.
type EntityValue struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Request is the invocation record handed to an action handler: the session
// it concerns, the context at this point of the loop, the text that started
// the turn, and the entities the engine extracted.
type Request struct {
	SessionID string
	Context   convo.Context
	Text      string
	Entities  Entities
}

// Message is an engine-composed reply to relay to the user.
type Message struct {
	Text string
}

// Actions is the closed set of callbacks the engine may invoke. Run
// dispatches by action name and returns the updated context, or nil to end
// the turn; Send relays engine-composed text to the user.
type Actions interface {
	Send(ctx context.Context, req Request, msg Message) error
	Run(ctx context.Context, name string, req Request) (*convo.Context, error)
}

// Client calls the engine's converse endpoint and owns the run-actions
// loop.
type Client struct {
	accessToken string
	baseURL     string
	actions     Actions
	httpClient  *http.Client
}

// NewClient builds an engine client bound to an action set.
func NewClient(accessToken, baseURL string, actions Actions) *Client {
	return &Client{
		accessToken: accessToken,
		baseURL:     baseURL,
		actions:     actions,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// step is one converse response. Type is "action", "msg" or "stop".
type step struct {
	Type       string   `json:"type"`
	Action     string   `json:"action"`
	Msg        string   `json:"msg"`
	Entities   Entities `json:"entities"`
	Confidence float64  `json:"confidence"`
}

// RunActions runs one conversation turn: it feeds text and the current
// context to the engine and executes the steps the engine selects until the
// engine stops or an action signals completion. The returned context is the
// final state for the session; on error the caller keeps its previous
// context.
func (c *Client) RunActions(ctx context.Context, sessionID, text string, current convo.Context) (convo.Context, error) {
	query := text
	for i := 0; i < maxSteps; i++ {
		st, err := c.converse(ctx, sessionID, query, current)
		if err != nil {
			return current, err
		}
		// Only the first converse call of a turn carries the user text.
		query = ""

		req := Request{
			SessionID: sessionID,
			Context:   current,
			Text:      text,
			Entities:  st.Entities,
		}

		switch st.Type {
		case "stop":
			return current, nil
		case "msg":
			if err := c.actions.Send(ctx, req, Message{Text: st.Msg}); err != nil {
				return current, fmt.Errorf("send action: %w", err)
			}
		case "action":
			next, err := c.actions.Run(ctx, st.Action, req)
			if err != nil {
				return current, fmt.Errorf("action %q: %w", st.Action, err)
			}
			if next == nil {
				return current, nil
			}
			current = *next
		default:
			return current, fmt.Errorf("unexpected converse step type %q", st.Type)
		}

		log.Debug().
			Str("session", sessionID).
			Str("step", st.Type).
			Str("action", st.Action).
			Msg("converse step handled")
	}
	return current, ErrTooManySteps
}

// converse asks the engine for the next step of the turn.
func (c *Client) converse(ctx context.Context, sessionID, text string, current convo.Context) (step, error) {
	params := url.Values{}
	params.Set("v", apiVersion)
	params.Set("session_id", sessionID)
	if text != "" {
		params.Set("q", text)
	}

	body, err := json.Marshal(current)
	if err != nil {
		return step{}, fmt.Errorf("encode context: %w", err)
	}

	endpoint := fmt.Sprintf("%s/converse?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return step{}, fmt.Errorf("create converse request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return step{}, fmt.Errorf("converse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return step{}, fmt.Errorf("converse returned status %d", resp.StatusCode)
	}

	var st step
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return step{}, fmt.Errorf("decode converse response: %w", err)
	}
	return st, nil
}
