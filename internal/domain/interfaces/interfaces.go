// Package interfaces defines the contracts the handshake core consumes
// from its collaborators: persistence, transport, and UI events. No
// implementation lives here.
package interfaces

import (
	"context"

	domaintypes "yumsg/internal/domain/types"
)

// ChatStore is the persistent chat_id -> Chat mapping. A single
// read-write lock protects it; writers persist synchronously before
// returning.
type ChatStore interface {
	Get(chatID string) (domaintypes.Chat, bool, error)
	Save(chat domaintypes.Chat) error
	ListByStatus(status domaintypes.Status) ([]domaintypes.Chat, error)
	UpdateEstablishment(chatID, fingerprint string, status domaintypes.Status) error
	Delete(chatID string) error
	Touch(chatID string) error
	ReapStale(maxAge int64) (int, error)
}

// PendingSecretTable is the process-local, never-persisted chat_id ->
// secret mapping bridging CHAT_INIT_REQUEST and CHAT_INIT_CONFIRM.
type PendingSecretTable interface {
	Put(chatID string, secret []byte)
	Remove(chatID string) ([]byte, bool)
	Expire(olderThan int64) int
}

// Transport is the abstract sink/source the HandshakeEngine drives.
// Concrete server-mediated and LAN P2P implementations are out of
// scope for this module; the loopback transport under
// internal/transport/loopback exists only to exercise this interface
// in tests and the demo command.
type Transport interface {
	Send(ctx context.Context, peerID string, msg domaintypes.HandshakeMessage) error
	OnMessage(handler func(ctx context.Context, fromPeer string, msg domaintypes.HandshakeMessage))
}

// UIEventSink receives the two lifecycle events the handshake core
// publishes. A nil sink is valid and drops events.
type UIEventSink interface {
	ChatEstablished(chatID, fingerprint string)
	ChatFailed(chatID string, reason error)
}

// AlgorithmPolicy resolves the algorithm triple a chat opens with and
// reports whether outbound messages should carry crypto_algorithms.
// Deliberately narrow: it only ever resolves the triple for a fresh
// CHAT_INIT_REQUEST. Checking that a later CHAT_INIT_RESPONSE names the
// same triple the chat was opened with is a request/response
// consistency question scoped to one chat, not a policy concern — it
// stays in handshake.Engine.HandleInitResponse against chat.Keys.Algorithms.
type AlgorithmPolicy interface {
	// LocalTriple returns the triple to use when we originate a chat.
	LocalTriple() domaintypes.AlgorithmTriple

	// ResolveRequestTriple determines the triple for an inbound
	// CHAT_INIT_REQUEST. In P2P mode the descriptor, when present, is
	// authoritative; in server-mediated mode it is ignored in favor of
	// the cached organization-wide triple.
	ResolveRequestTriple(descriptor *domaintypes.AlgorithmDescriptor) (domaintypes.AlgorithmTriple, error)

	// CarriesAlgorithms reports whether outbound messages in this mode
	// should carry a crypto_algorithms field (true in P2P, false server-mediated).
	CarriesAlgorithms() bool
}
