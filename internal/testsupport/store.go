package testsupport

import (
	"testing"

	"snapvault/internal/config"
	"snapvault/internal/journal"
)

// MustOpenJournal opens the capture journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
