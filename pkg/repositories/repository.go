package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/sowandreap/kalaha/pkg/types"
)

// SessionRecord is the locally cached identity of the most recent game
// session, used to resume the same server session across client runs.
type SessionRecord struct {
	SessionID  uuid.UUID
	Difficulty types.Difficulty
}

type Repository interface {
	Close(ctx context.Context) error
	SaveSession(ctx context.Context, record SessionRecord) error
	LoadLastSession(ctx context.Context) (*SessionRecord, error)
}
