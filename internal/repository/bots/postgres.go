package bots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nmoralesv/horasbot/internal/model/bot"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const botColumns = "id, name, info, active, created_at, updated_at"

func scanBot(row pgx.Row) (bot.Bot, error) {
	var b bot.Bot
	err := row.Scan(&b.ID, &b.Name, &b.Info, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (p *Postgres) List(ctx context.Context) ([]bot.Bot, error) {
	rows, err := p.pool.Query(ctx, "SELECT "+botColumns+" FROM bots ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer rows.Close()

	out := make([]bot.Bot, 0)
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bot: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, id string) (bot.Bot, error) {
	row := p.pool.QueryRow(ctx, "SELECT "+botColumns+" FROM bots WHERE id = $1", id)
	b, err := scanBot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return bot.Bot{}, ErrNotFound
	}
	if err != nil {
		return bot.Bot{}, fmt.Errorf("get bot: %w", err)
	}
	return b, nil
}

func (p *Postgres) Create(ctx context.Context, b bot.Bot) (bot.Bot, error) {
	b.ID = uuid.NewString()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := p.pool.Exec(ctx,
		"INSERT INTO bots ("+botColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		b.ID, b.Name, b.Info, b.Active, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return bot.Bot{}, fmt.Errorf("create bot: %w", err)
	}
	return b, nil
}

func (p *Postgres) Upsert(ctx context.Context, b bot.Bot) (bot.Bot, error) {
	now := time.Now().UTC()
	b.UpdatedAt = now

	row := p.pool.QueryRow(ctx, `
		INSERT INTO bots (`+botColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, info = EXCLUDED.info,
		    active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
		RETURNING `+botColumns,
		b.ID, b.Name, b.Info, b.Active, now, now)

	stored, err := scanBot(row)
	if err != nil {
		return bot.Bot{}, fmt.Errorf("upsert bot: %w", err)
	}
	return stored, nil
}

func (p *Postgres) Update(ctx context.Context, b bot.Bot) (bot.Bot, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE bots SET name = $2, info = $3, active = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+botColumns,
		b.ID, b.Name, b.Info, b.Active, time.Now().UTC())

	stored, err := scanBot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return bot.Bot{}, ErrNotFound
	}
	if err != nil {
		return bot.Bot{}, fmt.Errorf("update bot: %w", err)
	}
	return stored, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM bots WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete bot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
