package bot

import "time"

// Bot is the settings resource exposed over the REST API.
type Bot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Info      string    `json:"info"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
