package ledger

import (
	"context"

	"git.home.luguber.info/inful/calfstretch/internal/kvstore"
)

// StorageKey is the key the ledger is persisted under.
const StorageKey = "sessions"

// Load reads the stored records. A missing key yields an empty slice.
func Load(ctx context.Context, store kvstore.Store) ([]DaySession, error) {
	var sessions []DaySession
	if _, err := kvstore.GetJSON(ctx, store, StorageKey, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Save writes the ledger's records.
func (l *Ledger) Save(ctx context.Context, store kvstore.Store) error {
	sessions := l.Sessions()
	if sessions == nil {
		sessions = []DaySession{}
	}
	return kvstore.SetJSON(ctx, store, StorageKey, sessions)
}
