package bots

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nmoralesv/horasbot/internal/model/bot"
)

// Memory implements Store with a mutex-guarded map. Used when no database
// is configured and throughout the test suite.
type Memory struct {
	mu    sync.RWMutex
	items map[string]bot.Bot
}

// NewMemory returns an empty in-memory bot store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]bot.Bot)}
}

func (m *Memory) List(_ context.Context) ([]bot.Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]bot.Bot, 0, len(m.items))
	for _, b := range m.items {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (bot.Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.items[id]
	if !ok {
		return bot.Bot{}, ErrNotFound
	}
	return b, nil
}

func (m *Memory) Create(_ context.Context, b bot.Bot) (bot.Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b.ID = uuid.NewString()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	m.items[b.ID] = b
	return b, nil
}

func (m *Memory) Upsert(_ context.Context, b bot.Bot) (bot.Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.items[b.ID]; ok {
		b.CreatedAt = existing.CreatedAt
	} else {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	m.items[b.ID] = b
	return b, nil
}

func (m *Memory) Update(_ context.Context, b bot.Bot) (bot.Bot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.items[b.ID]
	if !ok {
		return bot.Bot{}, ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	m.items[b.ID] = b
	return b, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}
