package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaintypes "yumsg/internal/domain/types"
	"yumsg/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteChatStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chats.db")
	s, err := store.NewSQLiteChatStore(path, "test-passphrase", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleChat(id string) domaintypes.Chat {
	now := time.Now().UTC().Truncate(time.Second)
	return domaintypes.Chat{
		ID:           id,
		Name:         "",
		PeerID:       "peer-" + id,
		Status:       domaintypes.StatusInitializing,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
		Keys: domaintypes.ChatKeyRing{
			Algorithms: domaintypes.AlgorithmTriple{
				KEM:       domaintypes.KEMKyber768,
				Symmetric: domaintypes.SymmetricAES256GCM,
				Signature: domaintypes.SignatureDilithium3,
			},
			OwnPublic:  []byte("own-public-key-bytes"),
			OwnPrivate: []byte("own-private-key-bytes"),
		},
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	chat := sampleChat("c1")

	require.NoError(t, s.Save(chat))

	got, ok, err := s.Get("c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "peer-c1", got.Name, "empty name defaults to peer id")
	assert.Equal(t, chat.Keys.Algorithms, got.Keys.Algorithms)
	assert.Equal(t, chat.Keys.OwnPublic, got.Keys.OwnPublic)
	assert.Equal(t, chat.Keys.OwnPrivate, got.Keys.OwnPrivate)
}

func TestGetMissingChatIsNotError(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Get("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveNeverOverwritesNameWithEmpty(t *testing.T) {
	s := newTestStore(t)
	chat := sampleChat("c2")
	chat.Name = "Alice"
	require.NoError(t, s.Save(chat))

	chat.Name = ""
	require.NoError(t, s.Save(chat))

	got, ok, err := s.Get("c2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Name)
}

func TestUpdateEstablishmentSetsCompletionTimestamp(t *testing.T) {
	s := newTestStore(t)
	chat := sampleChat("c3")
	require.NoError(t, s.Save(chat))

	require.NoError(t, s.UpdateEstablishment("c3", "deadbeefdeadbeefdeadbeefdeadbeef", domaintypes.StatusEstablished))

	got, ok, err := s.Get("c3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domaintypes.StatusEstablished, got.Status)
	assert.Equal(t, "deadbeefdeadbeefdeadbeefdeadbeef", got.Fingerprint)
	assert.False(t, got.EstablishmentCompletedAt.IsZero())
	assert.True(t, got.EstablishmentCompletedAt.After(got.CreatedAt) || got.EstablishmentCompletedAt.Equal(got.CreatedAt))
}

func TestListByStatusOrdersByLastActivityDescending(t *testing.T) {
	s := newTestStore(t)

	older := sampleChat("old")
	older.LastActivity = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.Save(older))

	newer := sampleChat("new")
	newer.LastActivity = time.Now().UTC()
	require.NoError(t, s.Save(newer))

	list, err := s.ListByStatus(domaintypes.StatusInitializing)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestDeleteRemovesChat(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(sampleChat("c4")))
	require.NoError(t, s.Delete("c4"))

	_, ok, err := s.Get("c4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReapStaleFailsOldInitializingChats(t *testing.T) {
	s := newTestStore(t)

	stale := sampleChat("stale")
	stale.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, s.Save(stale))

	fresh := sampleChat("fresh")
	require.NoError(t, s.Save(fresh))

	n, err := s.ReapStale(int64((time.Hour).Seconds()))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _, err := s.Get("stale")
	require.NoError(t, err)
	assert.Equal(t, domaintypes.StatusFailed, got.Status)
	assert.Nil(t, got.Keys.OwnPrivate)

	stillFresh, _, err := s.Get("fresh")
	require.NoError(t, err)
	assert.Equal(t, domaintypes.StatusInitializing, stillFresh.Status)
}

func TestTouchBumpsLastActivity(t *testing.T) {
	s := newTestStore(t)
	chat := sampleChat("c5")
	chat.LastActivity = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.Save(chat))

	require.NoError(t, s.Touch("c5"))

	got, ok, err := s.Get("c5")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.LastActivity.After(chat.LastActivity))
}
