// Package events publishes candidate selections to Kafka and replays them
// into a score store.
package events

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/session"
)

// SelectionEvent records one accepted candidate.
type SelectionEvent struct {
	Word      string    `json:"word"`
	Path      string    `json:"path"`
	Page      int       `json:"page"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// FromSelection converts a session selection into its wire form.
func FromSelection(sel session.Selection) SelectionEvent {
	return SelectionEvent{
		Word:      sel.Pair.Word,
		Path:      sel.Pair.Path,
		Page:      sel.Page,
		SessionID: sel.SessionID,
		Timestamp: sel.At.UTC(),
	}
}
