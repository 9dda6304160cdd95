package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	domain "yumsg/internal/domain"
	domaintypes "yumsg/internal/domain/types"
)

const chatsSchema = `
CREATE TABLE IF NOT EXISTS chats (
	chat_id                     TEXT PRIMARY KEY,
	name                        TEXT NOT NULL,
	peer_id                     TEXT NOT NULL,
	keys_blob                   BLOB,
	last_activity               INTEGER NOT NULL,
	created_at                  INTEGER NOT NULL,
	updated_at                  INTEGER NOT NULL,
	fingerprint                 TEXT NOT NULL DEFAULT '',
	status                      TEXT NOT NULL,
	establishment_completed_at  INTEGER NOT NULL DEFAULT 0,
	peer_verified               INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteChatStore is the persistent chat_id -> Chat mapping, backed by
// database/sql over github.com/mattn/go-sqlite3. A single sync.RWMutex
// serializes writers while letting Get/ListByStatus readers proceed
// concurrently; SQLite's own file locking is the durability backstop
// underneath.
type SQLiteChatStore struct {
	db         *sql.DB
	mu         sync.RWMutex
	passphrase string
	log        *logrus.Logger
}

// NewSQLiteChatStore opens (creating if necessary) a SQLite-backed
// ChatStore at path. keys_blob is encrypted at rest under passphrase.
func NewSQLiteChatStore(path, passphrase string, log *logrus.Logger) (*SQLiteChatStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite chat store: %w", err)
	}
	if _, err := db.Exec(chatsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chats table: %w", err)
	}
	if log == nil {
		log = logrus.New()
	}
	return &SQLiteChatStore{db: db, passphrase: passphrase, log: log}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteChatStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteChatStore) encodeBlob(ring domaintypes.ChatKeyRing) ([]byte, error) {
	raw, err := encodeKeyRing(ring)
	if err != nil {
		return nil, fmt.Errorf("encode keys_blob: %w", err)
	}
	N, r, p := scryptParamsDefault()
	enc, err := encrypt(s.passphrase, raw, N, r, p)
	if err != nil {
		return nil, fmt.Errorf("encrypt keys_blob: %w", err)
	}
	return enc, nil
}

// decodeBlob decodes an at-rest keys_blob. A parse failure is logged
// and swallowed: the chat record itself stays valid even if the key
// material is corrupt.
func (s *SQLiteChatStore) decodeBlob(chatID string, enc []byte) domaintypes.ChatKeyRing {
	if len(enc) == 0 {
		return domaintypes.ChatKeyRing{}
	}
	raw, err := decrypt(s.passphrase, enc)
	if err != nil {
		s.log.WithFields(logrus.Fields{"chat_uuid": chatID}).Warn("keys_blob decrypt failed, returning null key ring")
		return domaintypes.ChatKeyRing{}
	}
	ring, err := decodeKeyRing(raw)
	if err != nil {
		s.log.WithFields(logrus.Fields{"chat_uuid": chatID}).Warn("keys_blob decode failed, returning null key ring")
		return domaintypes.ChatKeyRing{}
	}
	return ring
}

// Get looks up a chat by its primary key. Absence is not an error.
func (s *SQLiteChatStore) Get(chatID string) (domaintypes.Chat, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT name, peer_id, keys_blob, last_activity, created_at, updated_at,
		       fingerprint, status, establishment_completed_at, peer_verified
		FROM chats WHERE chat_id = ?`, chatID)

	chat, blob, err := scanChat(chatID, row)
	if err == sql.ErrNoRows {
		return domaintypes.Chat{}, false, nil
	}
	if err != nil {
		return domaintypes.Chat{}, false, fmt.Errorf("get chat %s: %w", chatID, err)
	}
	chat.Keys = s.decodeBlob(chatID, blob)
	return chat, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(chatID string, row rowScanner) (domaintypes.Chat, []byte, error) {
	var (
		chat                     domaintypes.Chat
		blob                     []byte
		lastActivity, createdAt  int64
		updatedAt, establishedAt int64
		verified                 int
	)
	err := row.Scan(&chat.Name, &chat.PeerID, &blob, &lastActivity, &createdAt, &updatedAt,
		&chat.Fingerprint, &chat.Status, &establishedAt, &verified)
	if err != nil {
		return domaintypes.Chat{}, nil, err
	}
	chat.ID = chatID
	chat.LastActivity = time.Unix(lastActivity, 0).UTC()
	chat.CreatedAt = time.Unix(createdAt, 0).UTC()
	chat.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if establishedAt > 0 {
		chat.EstablishmentCompletedAt = time.Unix(establishedAt, 0).UTC()
	}
	chat.PeerCrypto = domaintypes.PeerCryptoInfo{PeerID: chat.PeerID, Verified: verified != 0}
	return chat, blob, nil
}

// Save upserts the chat record. A non-empty existing name is never
// overwritten by an empty incoming one: an unsolicited INIT_REQUEST
// creates a chat named after the peer id before the user has a chance
// to rename it.
func (s *SQLiteChatStore) Save(chat domaintypes.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := chat.Name
	if name == "" {
		var existing string
		err := s.db.QueryRow(`SELECT name FROM chats WHERE chat_id = ?`, chat.ID).Scan(&existing)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("save chat %s: read existing name: %w", chat.ID, err)
		}
		if existing != "" {
			name = existing
		} else {
			name = chat.PeerID
		}
	}

	blob, err := s.encodeBlob(chat.Keys)
	if err != nil {
		return fmt.Errorf("save chat %s: %w", chat.ID, err)
	}

	verified := 0
	if chat.PeerCrypto.Verified {
		verified = 1
	}
	var establishedAt int64
	if !chat.EstablishmentCompletedAt.IsZero() {
		establishedAt = chat.EstablishmentCompletedAt.Unix()
	}

	_, err = s.db.Exec(`
		INSERT INTO chats (chat_id, name, peer_id, keys_blob, last_activity, created_at,
			updated_at, fingerprint, status, establishment_completed_at, peer_verified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			name = excluded.name,
			peer_id = excluded.peer_id,
			keys_blob = excluded.keys_blob,
			last_activity = excluded.last_activity,
			updated_at = excluded.updated_at,
			fingerprint = excluded.fingerprint,
			status = excluded.status,
			establishment_completed_at = excluded.establishment_completed_at,
			peer_verified = excluded.peer_verified`,
		chat.ID, name, chat.PeerID, blob, chat.LastActivity.Unix(), chat.CreatedAt.Unix(),
		chat.UpdatedAt.Unix(), chat.Fingerprint, string(chat.Status), establishedAt, verified)
	if err != nil {
		return fmt.Errorf("save chat %s: %w", chat.ID, err)
	}
	return nil
}

// ListByStatus returns every chat in status, ordered by last_activity
// descending.
func (s *SQLiteChatStore) ListByStatus(status domaintypes.Status) ([]domaintypes.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT chat_id, name, peer_id, keys_blob, last_activity, created_at, updated_at,
		       fingerprint, status, establishment_completed_at, peer_verified
		FROM chats WHERE status = ? ORDER BY last_activity DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list chats by status %s: %w", status, err)
	}
	defer rows.Close()

	var out []domaintypes.Chat
	for rows.Next() {
		var chatID string
		var blob []byte
		var lastActivity, createdAt, updatedAt, establishedAt int64
		var verified int
		var chat domaintypes.Chat
		if err := rows.Scan(&chatID, &chat.Name, &chat.PeerID, &blob, &lastActivity, &createdAt,
			&updatedAt, &chat.Fingerprint, &chat.Status, &establishedAt, &verified); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		chat.ID = chatID
		chat.LastActivity = time.Unix(lastActivity, 0).UTC()
		chat.CreatedAt = time.Unix(createdAt, 0).UTC()
		chat.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		if establishedAt > 0 {
			chat.EstablishmentCompletedAt = time.Unix(establishedAt, 0).UTC()
		}
		chat.PeerCrypto = domaintypes.PeerCryptoInfo{PeerID: chat.PeerID, Verified: verified != 0}
		chat.Keys = s.decodeBlob(chatID, blob)
		out = append(out, chat)
	}
	return out, rows.Err()
}

// UpdateEstablishment atomically writes fingerprint, status, updated_at,
// and (when transitioning to ESTABLISHED) establishment_completed_at.
func (s *SQLiteChatStore) UpdateEstablishment(chatID, fingerprint string, status domaintypes.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var res sql.Result
	var err error
	if status == domaintypes.StatusEstablished {
		res, err = s.db.Exec(`
			UPDATE chats SET fingerprint = ?, status = ?, updated_at = ?, establishment_completed_at = ?
			WHERE chat_id = ?`, fingerprint, string(status), now.Unix(), now.Unix(), chatID)
	} else {
		res, err = s.db.Exec(`
			UPDATE chats SET fingerprint = ?, status = ?, updated_at = ?
			WHERE chat_id = ?`, fingerprint, string(status), now.Unix(), chatID)
	}
	if err != nil {
		return fmt.Errorf("update establishment for chat %s: %w", chatID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update establishment for chat %s: no such chat", chatID)
	}
	return nil
}

// Delete removes the chat record.
func (s *SQLiteChatStore) Delete(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM chats WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete chat %s: %w", chatID, err)
	}
	return nil
}

// Touch bumps last_activity (and updated_at) to now, independent of
// establishment status (supplemented behavior: every inbound handshake
// message touches activity, not just establishment).
func (s *SQLiteChatStore) Touch(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Unix()
	if _, err := s.db.Exec(`UPDATE chats SET last_activity = ?, updated_at = ? WHERE chat_id = ?`,
		now, now, chatID); err != nil {
		return fmt.Errorf("touch chat %s: %w", chatID, err)
	}
	return nil
}

// ReapStale transitions every INITIALIZING chat whose created_at is
// older than now-maxAge to FAILED, clearing its keys_blob, and returns
// the count affected.
func (s *SQLiteChatStore) ReapStale(maxAge int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Unix() - maxAge
	res, err := s.db.Exec(`
		UPDATE chats SET status = ?, keys_blob = NULL, updated_at = ?
		WHERE status = ? AND created_at < ?`,
		string(domaintypes.StatusFailed), time.Now().UTC().Unix(), string(domaintypes.StatusInitializing), cutoff)
	if err != nil {
		return 0, fmt.Errorf("reap stale chats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reap stale chats: %w", err)
	}
	return int(n), nil
}

var _ domain.ChatStore = (*SQLiteChatStore)(nil)
