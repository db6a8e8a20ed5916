// Package actions implements the callbacks the NLU engine may select
// during a conversation turn. The set is closed: dispatch is a total match
// over the enumerated action names, and an unknown name aborts the turn at
// the boundary instead of silently doing nothing.
package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nmoralesv/horasbot/internal/model/convo"
	"github.com/nmoralesv/horasbot/internal/service/nlu"
	"github.com/nmoralesv/horasbot/internal/service/session"
)

// Action names the engine is allowed to invoke.
const (
	ActionCheckHours = "checkHours"
)

// Opening hours used by checkHours, local time.
const (
	openingHour = 10
	closingHour = 20
)

// Sender delivers text to a channel user.
type Sender interface {
	SendText(ctx context.Context, recipientID, text string) error
}

// Set wires the action callbacks to the session store and the outbound
// messenger client.
type Set struct {
	sessions *session.Store
	sender   Sender
	now      func() time.Time
}

// NewSet builds the action set. The clock defaults to time.Now.
func NewSet(sessions *session.Store, sender Sender) *Set {
	return &Set{
		sessions: sessions,
		sender:   sender,
		now:      time.Now,
	}
}

// Send resolves the session's channel user and forwards engine-composed
// text. A session that cannot be resolved is logged and swallowed: the
// turn goes on, there is just nobody to deliver to.
func (s *Set) Send(ctx context.Context, req nlu.Request, msg nlu.Message) error {
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		log.Error().
			Str("session", req.SessionID).
			Msg("cannot resolve session for outbound send")
		return nil
	}

	if err := s.sender.SendText(ctx, sess.UserID, msg.Text); err != nil {
		log.Error().
			Err(err).
			Str("session", req.SessionID).
			Str("user", sess.UserID).
			Msg("outbound send failed")
	}
	return nil
}

// Run dispatches a named action. Unknown names are an engine contract
// violation and fail the turn.
func (s *Set) Run(ctx context.Context, name string, req nlu.Request) (*convo.Context, error) {
	switch name {
	case ActionCheckHours:
		return s.checkHours(ctx, req)
	default:
		return nil, fmt.Errorf("unknown action %q", name)
	}
}

func (s *Set) checkHours(_ context.Context, req nlu.Request) (*convo.Context, error) {
	if req.SessionID == "" {
		return nil, errors.New("checkHours: missing session id")
	}

	next := req.Context
	hour := s.now().Hour()
	open := hour >= openingHour && hour < closingHour

	next.Open = &open
	if open {
		next.Response = fmt.Sprintf("¡Estamos abiertos! Hoy atendemos hasta las %d:00.", closingHour)
	} else {
		next.Response = fmt.Sprintf("Ahora mismo estamos cerrados. Abrimos de %d:00 a %d:00.", openingHour, closingHour)
	}
	next.Intent = "check-hours"

	return &next, nil
}
