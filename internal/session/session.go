package session

import (
	"context"
	"time"
)

// State is the per-browser application context: the last selected page
// range and question count plus what the last run produced. The API key is
// never part of it.
type State struct {
	ID        string    `json:"id"`
	StartPage int       `json:"start_page"`
	EndPage   int       `json:"end_page"`
	Count     int       `json:"count"`
	RunID     string    `json:"run_id,omitempty"`
	Statuses  []string  `json:"statuses,omitempty"`
	Output    string    `json:"output,omitempty"`
	AllFailed bool      `json:"all_failed,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRun reports whether the state holds the result of a generation run.
func (s *State) HasRun() bool {
	return s != nil && s.RunID != ""
}

// Store keeps session state between requests.
type Store interface {
	// Get returns the state for id, or nil if there is none.
	Get(ctx context.Context, id string) (*State, error)

	// Save stores state under state.ID with a TTL.
	Save(ctx context.Context, state *State, ttl time.Duration) error

	Close() error
}
