// Package service implements the feedback workflows on top of the store:
// distribution, respondent sessions, analytics, export and admin accounts.
package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/feedbackapp/feedback-server/internal/domain"
	domainerrors "github.com/feedbackapp/feedback-server/internal/errors"
	"github.com/feedbackapp/feedback-server/internal/store"
)

// ResponseIndexer keeps the full-text index in step with the response table.
type ResponseIndexer interface {
	IndexResponse(r *domain.Response) error
	RemoveResponse(id string) error
}

// nopIndexer is used when search is disabled.
type nopIndexer struct{}

func (nopIndexer) IndexResponse(*domain.Response) error { return nil }
func (nopIndexer) RemoveResponse(string) error          { return nil }

func orNopIndexer(ix ResponseIndexer) ResponseIndexer {
	if ix == nil {
		return nopIndexer{}
	}
	return ix
}

func orDefaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// clock returns the current time; tests replace it.
type clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// translateStoreError maps store sentinels to domain errors. Anything
// unrecognized is a persistence failure carrying the original message.
func translateStoreError(err error, op, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound(notFoundMsg)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExists(op + ": already exists")
	case errors.Is(err, store.ErrConflict):
		return domainerrors.Conflict(op + ": modified concurrently")
	default:
		var derr *domainerrors.Error
		if errors.As(err, &derr) {
			return derr
		}
		return domainerrors.Persistence(err, op)
	}
}
