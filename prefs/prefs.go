package prefs

import (
	"context"
	"errors"
	"go-cbr-converter/domain"
	"time"
)

// ErrNotFound nothing has been saved yet.
var ErrNotFound = errors.New("no saved preferences")

// Preferences the user's last selection, restored at startup.
type Preferences struct {
	Date   time.Time
	Source domain.Currency
	Target domain.Currency
	Amount string
}

// Store persists Preferences.
type Store interface {
	Load(ctx context.Context) (Preferences, error)
	Save(ctx context.Context, p Preferences) error
}
