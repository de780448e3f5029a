package events

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/personal"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/session"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/kafka"
)

// ReplayHandler returns a consumer handler that folds selection events into
// store, one promotion per event. Undecodable events and events missing a
// word or path are rejected as invalid input, which the consumer skips.
func ReplayHandler(store *personal.Store) kafka.MessageHandler {
	return func(_ context.Context, _ []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SelectionEvent](value)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}
		if event.Word == "" || event.Path == "" {
			return fmt.Errorf("%w: selection event without word or path", apperrors.ErrInvalidInput)
		}
		store.Promote(session.ScoreKey(search.CandidatePair{Word: event.Word, Path: event.Path}))
		return nil
	}
}
