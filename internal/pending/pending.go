// Package pending implements PendingSecretTable: the
// process-local, never-persisted bridge between a responder's
// CHAT_INIT_REQUEST handling and the initiator's matching
// CHAT_INIT_CONFIRM. Entries are consumed exactly once and expire
// after a configurable TTL.
package pending

import (
	"sync"
	"time"

	"yumsg/internal/crypto"
	domaintypes "yumsg/internal/domain/types"
)

// DefaultTTL is the default lifetime of a pending KEM secret awaiting
// its matching CHAT_INIT_CONFIRM.
const DefaultTTL = 5 * time.Minute

// Table is an in-memory, mutex-guarded chat_id -> secret map. Never
// persisted: a process restart drops every pending secret, which is
// the correct behavior since the peer would otherwise wait forever on
// a confirm that can never arrive. No process-global state: the caller
// owns the *Table instance.
type Table struct {
	mu      sync.Mutex
	entries map[string]domaintypes.PendingSecret
}

// New returns an empty Table.
func New() *Table {
	return &Table{entries: make(map[string]domaintypes.PendingSecret)}
}

// Put stores secret under chatID, overwriting any prior entry for the
// same chat (a duplicate CHAT_INIT_REQUEST is dropped by the caller
// before reaching here — see internal/handshake — so overwriting here
// is defensive, not a codified behavior).
func (t *Table) Put(chatID string, secret []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[chatID] = domaintypes.PendingSecret{
		ChatUUID:  chatID,
		Secret:    append([]byte(nil), secret...),
		CreatedAt: time.Now().UTC(),
	}
}

// Remove consumes and returns the pending secret for chatID, if any.
// Each entry is retrievable by exactly one Remove call: a second call
// for the same chat_id returns ok=false.
func (t *Table) Remove(chatID string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[chatID]
	if !ok {
		return nil, false
	}
	delete(t.entries, chatID)
	return entry.Secret, true
}

// Expire zeroizes and drops every entry older than olderThan seconds,
// returning the count removed. Intended to run alongside StaleReaper.
func (t *Table) Expire(olderThan int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().UTC().Add(-time.Duration(olderThan) * time.Second)
	removed := 0
	for chatID, entry := range t.entries {
		if entry.CreatedAt.Before(cutoff) {
			crypto.Zeroize(entry.Secret)
			delete(t.entries, chatID)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently pending. Test-only helper.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
