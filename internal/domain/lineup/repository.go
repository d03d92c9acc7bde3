package lineup

import (
	"context"
	"errors"
)

// ErrConflict reports a uniqueness violation on insert, typically a resave
// racing a concurrent write for the same team sheet.
var ErrConflict = errors.New("lineup already exists for fixture side")

// Repository persists team sheets. ReplaceByFixture swaps both sides in one
// atomic step so a failure mid-replace can never leave the fixture with a
// partial sheet; when a concurrent writer wins the race the replace must fail
// with an error wrapping ErrConflict so callers can retry once.
type Repository interface {
	GetByFixture(ctx context.Context, fixtureID int64) (home Snapshot, away Snapshot, found bool, err error)
	ReplaceByFixture(ctx context.Context, fixtureID int64, home, away Snapshot) error
}
