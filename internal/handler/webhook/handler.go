// Package webhook receives the messaging platform's event deliveries and
// routes them into the conversation engine.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/nmoralesv/horasbot/internal/model/convo"
	"github.com/nmoralesv/horasbot/internal/service/session"
)

const (
	// pageObject discriminates deliveries meant for this webhook.
	pageObject = "page"

	// payloadCheckHours is the recognized postback payload; it is replayed
	// through the engine as if the user had typed the query.
	payloadCheckHours = "check-hours"
	checkHoursQuery   = "¿A qué hora abren hoy?"

	textOnlyReply = "Lo siento, por ahora solo entiendo mensajes de texto."
)

// Engine drives one conversation turn through the NLU run-actions loop.
type Engine interface {
	RunActions(ctx context.Context, sessionID, text string, current convo.Context) (convo.Context, error)
}

// Sender delivers text to a channel user.
type Sender interface {
	SendText(ctx context.Context, recipientID, text string) error
}

// Handler implements the webhook's verification handshake and event
// dispatch.
type Handler struct {
	verifyToken string
	sessions    *session.Store
	engine      Engine
	sender      Sender

	// dispatch runs batch processing after the HTTP 200 is sent; replaced
	// with a synchronous version in tests.
	dispatch func(fn func())
}

// New creates the webhook handler.
func New(verifyToken string, sessions *session.Store, engine Engine, sender Sender) *Handler {
	return &Handler{
		verifyToken: verifyToken,
		sessions:    sessions,
		engine:      engine,
		sender:      sender,
		dispatch:    func(fn func()) { go fn() },
	}
}

// RegisterRoutes mounts the handshake and delivery endpoints. appSecret
// feeds the signature check on deliveries.
func (h *Handler) RegisterRoutes(r chi.Router, appSecret string) {
	r.Get("/", h.handleHook)
	r.With(VerifySignature(appSecret)).Post("/", h.handleChat)
}

// handleHook answers the subscription verification handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func (h *Handler) handleHook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		log.Info().Msg("webhook subscription validated")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}

	log.Error().Msg("webhook validation failed, verify tokens do not match")
	w.WriteHeader(http.StatusForbidden)
}

// Wire shapes of a platform event delivery.
type delivery struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []messagingEvent `json:"messaging"`
}

type messagingEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message *struct {
		Text        string            `json:"text"`
		Attachments []json.RawMessage `json:"attachments"`
	} `json:"message"`
	Postback *struct {
		Payload string `json:"payload"`
	} `json:"postback"`
}

// handleChat accepts an event batch. The response is always 200 once the
// batch is parsed: a non-200 would make the platform redeliver the whole
// batch, duplicating events whose processing already started. Processing
// itself happens after the response, failures are logged only.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var d delivery
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		log.Error().Err(err).Msg("undecodable webhook delivery")
		w.WriteHeader(http.StatusOK)
		return
	}

	if d.Object != pageObject {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)

	h.dispatch(func() {
		var g errgroup.Group
		for _, events := range groupBySender(d.Entry) {
			events := events
			g.Go(func() error {
				for _, ev := range events {
					h.processEvent(context.Background(), ev)
				}
				return nil
			})
		}
		g.Wait()
	})
}

// groupBySender collects a batch's messaging events per sender, keeping
// each sender's events in arrival order. One goroutine then works through
// one sender's slice sequentially, so a sender's second message cannot
// overtake the first; distinct senders still process concurrently.
func groupBySender(entries []entry) [][]messagingEvent {
	index := make(map[string]int)
	var groups [][]messagingEvent
	for _, e := range entries {
		for _, ev := range e.Messaging {
			i, ok := index[ev.Sender.ID]
			if !ok {
				i = len(groups)
				index[ev.Sender.ID] = i
				groups = append(groups, nil)
			}
			groups[i] = append(groups[i], ev)
		}
	}
	return groups
}

// processEvent handles a single messaging event. The session's sequence
// lock serializes it against events from other deliveries for the same
// user; within one delivery, groupBySender already fixed the order.
func (h *Handler) processEvent(ctx context.Context, ev messagingEvent) {
	if ev.Sender.ID == "" {
		log.Warn().Msg("messaging event without sender, skipped")
		return
	}

	sess := h.sessions.FindOrCreate(ev.Sender.ID)
	release := h.sessions.Sequence(sess.ID)
	defer release()

	switch {
	case ev.Message != nil && len(ev.Message.Attachments) > 0:
		if err := h.sender.SendText(ctx, ev.Sender.ID, textOnlyReply); err != nil {
			log.Error().Err(err).Str("user", ev.Sender.ID).Msg("attachment fallback send failed")
		}
	case ev.Message != nil && ev.Message.Text != "":
		h.runTurn(ctx, sess.ID, ev.Message.Text)
	case ev.Postback != nil:
		if ev.Postback.Payload != payloadCheckHours {
			log.Warn().Str("payload", ev.Postback.Payload).Msg("unrecognized postback payload, ignored")
			return
		}
		h.runTurn(ctx, sess.ID, checkHoursQuery)
	default:
		log.Debug().Str("user", ev.Sender.ID).Msg("event carries neither text nor postback, ignored")
	}
}

// runTurn feeds one message through the engine and persists the final
// context. Engine failures leave the stored context untouched.
func (h *Handler) runTurn(ctx context.Context, sessionID, text string) {
	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("session vanished before turn")
		return
	}

	final, err := h.engine.RunActions(ctx, sessionID, text, sess.Context)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("run-actions turn failed")
		return
	}

	if final.Done {
		h.sessions.Delete(sessionID)
		return
	}

	if err := h.sessions.SetContext(sessionID, final); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("storing final context failed")
	}
}
