// Package bots persists the Bot settings resource.
package bots

import (
	"context"
	"errors"

	"github.com/nmoralesv/horasbot/internal/model/bot"
)

var ErrNotFound = errors.New("bot not found")

// Store abstracts bot persistence so handlers work against Postgres in
// production and the in-memory implementation in tests.
type Store interface {
	List(ctx context.Context) ([]bot.Bot, error)
	Get(ctx context.Context, id string) (bot.Bot, error)
	Create(ctx context.Context, b bot.Bot) (bot.Bot, error)
	// Upsert replaces the bot with the given id, inserting when absent.
	Upsert(ctx context.Context, b bot.Bot) (bot.Bot, error)
	// Update overwrites an existing bot and fails with ErrNotFound when
	// the id is unknown.
	Update(ctx context.Context, b bot.Bot) (bot.Bot, error)
	Delete(ctx context.Context, id string) error
}
