package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmoralesv/horasbot/internal/service/nlu"
	"github.com/nmoralesv/horasbot/internal/service/session"
)

type recordingSender struct {
	recipients []string
	texts      []string
	err        error
}

func (s *recordingSender) SendText(_ context.Context, recipientID, text string) error {
	s.recipients = append(s.recipients, recipientID)
	s.texts = append(s.texts, text)
	return s.err
}

func newSetAt(hour int, sender *recordingSender) (*Set, *session.Store) {
	sessions := session.NewStore()
	set := NewSet(sessions, sender)
	set.now = func() time.Time {
		return time.Date(2016, time.July, 4, hour, 30, 0, 0, time.UTC)
	}
	return set, sessions
}

func TestCheckHoursOpen(t *testing.T) {
	set, sessions := newSetAt(12, &recordingSender{})
	sess := sessions.FindOrCreate("user-1")

	next, err := set.Run(context.Background(), ActionCheckHours, nlu.Request{SessionID: sess.ID})

	require.NoError(t, err)
	require.NotNil(t, next)
	require.NotNil(t, next.Open)
	assert.True(t, *next.Open)
	assert.Contains(t, next.Response, "abiertos")
	assert.Equal(t, "check-hours", next.Intent)
}

func TestCheckHoursClosed(t *testing.T) {
	set, sessions := newSetAt(23, &recordingSender{})
	sess := sessions.FindOrCreate("user-1")

	next, err := set.Run(context.Background(), ActionCheckHours, nlu.Request{SessionID: sess.ID})

	require.NoError(t, err)
	require.NotNil(t, next.Open)
	assert.False(t, *next.Open)
	assert.Contains(t, next.Response, "cerrados")
}

func TestCheckHoursPreservesContext(t *testing.T) {
	set, sessions := newSetAt(12, &recordingSender{})
	sess := sessions.FindOrCreate("user-1")

	req := nlu.Request{SessionID: sess.ID}
	req.Context.Response = "anterior"
	next, err := set.Run(context.Background(), ActionCheckHours, req)

	require.NoError(t, err)
	assert.NotEqual(t, "anterior", next.Response, "checkHours must overwrite the response")
	// Input context is not mutated in place.
	assert.Equal(t, "anterior", req.Context.Response)
}

func TestRunUnknownAction(t *testing.T) {
	set, _ := newSetAt(12, &recordingSender{})

	_, err := set.Run(context.Background(), "fetchWeather", nlu.Request{SessionID: "s"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetchWeather")
}

func TestSendResolvesSessionUser(t *testing.T) {
	sender := &recordingSender{}
	set, sessions := newSetAt(12, sender)
	sess := sessions.FindOrCreate("user-77")

	err := set.Send(context.Background(), nlu.Request{SessionID: sess.ID}, nlu.Message{Text: "hola"})

	require.NoError(t, err)
	require.Len(t, sender.recipients, 1)
	assert.Equal(t, "user-77", sender.recipients[0])
	assert.Equal(t, "hola", sender.texts[0])
}

func TestSendUnresolvableSessionIsNonFatal(t *testing.T) {
	sender := &recordingSender{}
	set, _ := newSetAt(12, sender)

	err := set.Send(context.Background(), nlu.Request{SessionID: "missing"}, nlu.Message{Text: "hola"})

	require.NoError(t, err)
	assert.Empty(t, sender.recipients)
}

func TestSendDeliveryFailureIsSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("platform said no")}
	set, sessions := newSetAt(12, sender)
	sess := sessions.FindOrCreate("user-77")

	err := set.Send(context.Background(), nlu.Request{SessionID: sess.ID}, nlu.Message{Text: "hola"})

	require.NoError(t, err, "delivery failures are logged, not propagated")
}
