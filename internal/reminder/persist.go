package reminder

import (
	"context"

	"git.home.luguber.info/inful/calfstretch/internal/kvstore"
)

// StorageKey is the key the reminder set is persisted under.
const StorageKey = "reminders"

// Load reads the stored reminder set. found is false when nothing is stored.
func Load(ctx context.Context, store kvstore.Store) (reminders []Reminder, found bool, err error) {
	found, err = kvstore.GetJSON(ctx, store, StorageKey, &reminders)
	if err != nil {
		return nil, found, err
	}
	if found {
		if err := Validate(reminders); err != nil {
			return nil, true, err
		}
	}
	return reminders, found, nil
}

// Save writes the reminder set.
func Save(ctx context.Context, store kvstore.Store, reminders []Reminder) error {
	if reminders == nil {
		reminders = []Reminder{}
	}
	return kvstore.SetJSON(ctx, store, StorageKey, reminders)
}
