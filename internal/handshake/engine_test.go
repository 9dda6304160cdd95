package handshake_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yumsg/internal/crypto"
	domain "yumsg/internal/domain"
	domaintypes "yumsg/internal/domain/types"
	"yumsg/internal/handshake"
	"yumsg/internal/pending"
	"yumsg/internal/policy"
	"yumsg/internal/protocolerr"
	"yumsg/internal/store"
	"yumsg/internal/transport/loopback"
)

type staticSigningKeys struct {
	keys map[string][]byte
}

func (s staticSigningKeys) SigningPublicKey(peerID string) ([]byte, bool) {
	pub, ok := s.keys[peerID]
	return pub, ok
}

func sampleTriple() domaintypes.AlgorithmTriple {
	return domaintypes.AlgorithmTriple{
		KEM:       domaintypes.KEMKyber768,
		Symmetric: domaintypes.SymmetricAES256GCM,
		Signature: domaintypes.SignatureDilithium3,
	}
}

// eventSink records ChatEstablished/ChatFailed calls under a mutex,
// since the loopback transport delivers on its own goroutines.
type eventSink struct {
	mu          sync.Mutex
	established map[string]string
	failed      map[string]error
}

func newEventSink() *eventSink {
	return &eventSink{established: make(map[string]string), failed: make(map[string]error)}
}

func (s *eventSink) ChatEstablished(chatID, fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.established[chatID] = fingerprint
}

func (s *eventSink) ChatFailed(chatID string, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[chatID] = reason
}

func (s *eventSink) hasEstablished(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.established[chatID]
	return ok
}

func (s *eventSink) hasFailed(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.failed[chatID]
	return ok
}

type peerSetup struct {
	engine  *handshake.Engine
	store   *store.SQLiteChatStore
	pending *pending.Table
	sink    *eventSink
}

func newPeer(t *testing.T, network *loopback.Network, peerID string, triple domaintypes.AlgorithmTriple, serverMode bool) peerSetup {
	t.Helper()
	s, err := store.NewSQLiteChatStore(filepath.Join(t.TempDir(), "chats.db"), "test-passphrase", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var algPolicy domain.AlgorithmPolicy
	if serverMode {
		algPolicy = policy.NewServerMediated(triple)
	} else {
		algPolicy = policy.NewP2P(triple, nil)
	}

	sink := newEventSink()
	transport := network.NewTransport(peerID)
	pendingTable := pending.New()
	eng := handshake.New(s, pendingTable, algPolicy, transport, sink, nil)
	eng.Start()

	return peerSetup{engine: eng, store: s, pending: pendingTable, sink: sink}
}

func TestHappyPathP2PEstablishesMatchingChats(t *testing.T) {
	network := loopback.NewNetwork()
	triple := sampleTriple()
	alice := newPeer(t, network, "alice", triple, false)
	bob := newPeer(t, network, "bob", triple, false)

	chatID, err := alice.engine.InitiateChat(context.Background(), "bob")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return alice.sink.hasEstablished(chatID)
	}, 2*time.Second, 10*time.Millisecond, "alice's chat should establish")

	aliceChat, ok, err := alice.store.Get(chatID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domaintypes.StatusEstablished, aliceChat.Status)
	assert.NotEmpty(t, aliceChat.Fingerprint)
	assert.Nil(t, aliceChat.Keys.OwnPrivate, "established chat must not retain a private key")

	require.Eventually(t, func() bool {
		bobChat, ok, err := bob.store.Get(chatID)
		return err == nil && ok && bobChat.Status == domaintypes.StatusEstablished
	}, 2*time.Second, 10*time.Millisecond, "bob's chat should establish")

	bobChat, ok, err := bob.store.Get(chatID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, aliceChat.Fingerprint, bobChat.Fingerprint, "both sides derive the same fingerprint")
	assert.Equal(t, aliceChat.Keys.Symmetric, bobChat.Keys.Symmetric, "both sides derive the same symmetric key")
	assert.Nil(t, bobChat.Keys.OwnPrivate)
}

func TestP2PPeersWithDifferentDefaultsStillEstablish(t *testing.T) {
	network := loopback.NewNetwork()
	aliceTriple := sampleTriple()
	bobDefault := domaintypes.AlgorithmTriple{
		KEM:       domaintypes.KEMKyber1024,
		Symmetric: domaintypes.SymmetricChaCha20Poly1305,
		Signature: domaintypes.SignatureDilithium5,
	}
	alice := newPeer(t, network, "alice", aliceTriple, false)
	bob := newPeer(t, network, "bob", bobDefault, false)

	chatID, err := alice.engine.InitiateChat(context.Background(), "bob")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return alice.sink.hasEstablished(chatID)
	}, 2*time.Second, 10*time.Millisecond, "a P2P responder must honor the initiator's triple, not its own default")

	bobChat, ok, err := bob.store.Get(chatID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, aliceTriple, bobChat.Keys.Algorithms, "the request's triple is authoritative, even though it differs from bob's own default")
}

func TestInitRequestNamingUnsupportedAlgorithmFailsWithAlgorithmUnsupported(t *testing.T) {
	network := loopback.NewNetwork()
	triple := sampleTriple()
	bob := newPeer(t, network, "bob", triple, false)

	unsupported := domaintypes.AlgorithmTriple{
		KEM:       domaintypes.KEMCodeBasedMcEliece,
		Symmetric: triple.Symmetric,
		Signature: triple.Signature,
	}
	descriptor := domaintypes.DescriptorFromTriple(unsupported)

	err := bob.engine.HandleInitRequest(context.Background(), "alice", domaintypes.HandshakeMessage{
		Type:       domaintypes.MsgChatInitRequest,
		ChatUUID:   "unsupported-kem-chat",
		PublicKey:  []byte("not-a-real-public-key"),
		Algorithms: &descriptor,
	})
	require.Error(t, err)
	assert.True(t, protocolerr.Is(err, protocolerr.AlgorithmUnsupported))

	_, ok, getErr := bob.store.Get("unsupported-kem-chat")
	require.NoError(t, getErr)
	assert.False(t, ok, "a chat that never got a keypair generated must not be persisted")
}

func TestDuplicateInitRequestIsDropped(t *testing.T) {
	network := loopback.NewNetwork()
	triple := sampleTriple()
	bob := newPeer(t, network, "bob", triple, false)

	msg := domaintypes.HandshakeMessage{
		Type:     domaintypes.MsgChatInitRequest,
		ChatUUID: "dup-chat",
	}
	pub, _, err := crypto.GenerateKEMKeypair(triple.KEM)
	require.NoError(t, err)
	msg.PublicKey = pub
	descriptor := domaintypes.DescriptorFromTriple(triple)
	msg.Algorithms = &descriptor

	require.NoError(t, bob.engine.HandleInitRequest(context.Background(), "alice", msg))
	chatAfterFirst, ok, err := bob.store.Get("dup-chat")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, bob.engine.HandleInitRequest(context.Background(), "alice", msg))
	chatAfterSecond, ok, err := bob.store.Get("dup-chat")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, chatAfterFirst.Keys.OwnPublic, chatAfterSecond.Keys.OwnPublic,
		"a duplicate request must not regenerate the responder's keypair")
}

func TestResponseAlgorithmMismatchFailsChat(t *testing.T) {
	network := loopback.NewNetwork()
	triple := sampleTriple()
	alice := newPeer(t, network, "alice", triple, false)

	chatID, err := alice.engine.InitiateChat(context.Background(), "bob")
	require.NoError(t, err)

	mismatched := domaintypes.AlgorithmTriple{
		KEM:       triple.KEM,
		Symmetric: domaintypes.SymmetricChaCha20Poly1305,
		Signature: triple.Signature,
	}
	descriptor := domaintypes.DescriptorFromTriple(mismatched)

	msg := domaintypes.HandshakeMessage{
		Type:       domaintypes.MsgChatInitResponse,
		ChatUUID:   chatID,
		PublicKey:  []byte("not-a-real-public-key"),
		KEMCapsule: []byte("not-a-real-capsule"),
		Algorithms: &descriptor,
	}

	err = alice.engine.HandleInitResponse(context.Background(), "bob", msg)
	require.Error(t, err)
	assert.True(t, protocolerr.Is(err, protocolerr.AlgorithmMismatch))

	got, ok, getErr := alice.store.Get(chatID)
	require.NoError(t, getErr)
	require.True(t, ok)
	assert.Equal(t, domaintypes.StatusFailed, got.Status)
	assert.Nil(t, got.Keys.OwnPrivate)
	assert.True(t, alice.sink.hasFailed(chatID))
}

func TestDuplicateInitRequestForResolvedChatIsDropped(t *testing.T) {
	network := loopback.NewNetwork()
	triple := sampleTriple()
	bob := newPeer(t, network, "bob", triple, false)

	require.NoError(t, bob.store.Save(domaintypes.Chat{
		ID:        "already-established",
		PeerID:    "alice",
		Status:    domaintypes.StatusEstablished,
		Keys:      domaintypes.ChatKeyRing{Algorithms: triple, Symmetric: []byte("established-symmetric-key")},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}))

	pub, _, err := crypto.GenerateKEMKeypair(triple.KEM)
	require.NoError(t, err)
	descriptor := domaintypes.DescriptorFromTriple(triple)

	err = bob.engine.HandleInitRequest(context.Background(), "alice", domaintypes.HandshakeMessage{
		Type:       domaintypes.MsgChatInitRequest,
		ChatUUID:   "already-established",
		PublicKey:  pub,
		Algorithms: &descriptor,
	})
	require.NoError(t, err)

	got, ok, err := bob.store.Get("already-established")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domaintypes.StatusEstablished, got.Status, "a replayed init request must not disturb an established chat")
	assert.Nil(t, got.Keys.PeerPublic, "the cleaned ring's peer_public must stay nil")
}

func TestServerModeIgnoresInboundAlgorithmDescriptor(t *testing.T) {
	network := loopback.NewNetwork()
	orgTriple := sampleTriple()
	alice := newPeer(t, network, "alice", orgTriple, true)
	bob := newPeer(t, network, "bob", orgTriple, true)

	chatID, err := alice.engine.InitiateChat(context.Background(), "bob")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return alice.sink.hasEstablished(chatID) && bob.sink.hasEstablished(chatID)
	}, 2*time.Second, 10*time.Millisecond)

	bobChat, ok, err := bob.store.Get(chatID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domaintypes.StatusEstablished, bobChat.Status)
}

func TestHandshakeDesynchronizationFailsChatAndWipesKeys(t *testing.T) {
	network := loopback.NewNetwork()
	triple := sampleTriple()
	bob := newPeer(t, network, "bob", triple, false)

	ownPub, ownPriv, err := crypto.GenerateKEMKeypair(triple.KEM)
	require.NoError(t, err)
	peerPub, _, err := crypto.GenerateKEMKeypair(triple.KEM)
	require.NoError(t, err)
	capsule, _, err := crypto.Encapsulate(triple.KEM, ownPub)
	require.NoError(t, err)

	chat := domaintypes.Chat{
		ID:     "desync-chat",
		PeerID: "alice",
		Status: domaintypes.StatusInitializing,
		Keys: domaintypes.ChatKeyRing{
			Algorithms: triple,
			OwnPublic:  ownPub,
			OwnPrivate: ownPriv,
			PeerPublic: peerPub,
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, bob.store.Save(chat))

	msg := domaintypes.HandshakeMessage{
		Type:       domaintypes.MsgChatInitConfirm,
		ChatUUID:   "desync-chat",
		KEMCapsule: capsule,
	}
	err = bob.engine.HandleInitConfirm(context.Background(), "alice", msg)
	require.Error(t, err)
	assert.True(t, protocolerr.Is(err, protocolerr.HandshakeDesynchronized))

	got, ok, err := bob.store.Get("desync-chat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domaintypes.StatusFailed, got.Status)
	assert.Nil(t, got.Keys.OwnPrivate)
	assert.Nil(t, got.Keys.OwnPublic)
	assert.True(t, bob.sink.hasFailed("desync-chat"))
}

func TestDeleteRemovesChatRegardlessOfStatus(t *testing.T) {
	network := loopback.NewNetwork()
	bob := newPeer(t, network, "bob", sampleTriple(), false)

	require.NoError(t, bob.store.Save(domaintypes.Chat{
		ID:        "to-delete",
		PeerID:    "alice",
		Status:    domaintypes.StatusEstablished,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}))

	err := bob.engine.HandleDelete(context.Background(), "alice", domaintypes.HandshakeMessage{
		Type:         domaintypes.MsgChatDelete,
		ChatUUID:     "to-delete",
		DeleteReason: "user requested",
	})
	require.NoError(t, err)

	_, ok, err := bob.store.Get("to-delete")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteAlsoRemovesPendingSecret(t *testing.T) {
	network := loopback.NewNetwork()
	bob := newPeer(t, network, "bob", sampleTriple(), false)

	require.NoError(t, bob.store.Save(domaintypes.Chat{
		ID:        "awaiting-confirm",
		PeerID:    "alice",
		Status:    domaintypes.StatusInitializing,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}))
	bob.pending.Put("awaiting-confirm", []byte("secret-b"))

	err := bob.engine.HandleDelete(context.Background(), "alice", domaintypes.HandshakeMessage{
		Type:         domaintypes.MsgChatDelete,
		ChatUUID:     "awaiting-confirm",
		DeleteReason: "user requested",
	})
	require.NoError(t, err)

	_, ok := bob.pending.Remove("awaiting-confirm")
	assert.False(t, ok, "deleting a chat must also drop its pending secret")
}

func TestInitSignatureBumpsActivityWithoutTearingDownSession(t *testing.T) {
	network := loopback.NewNetwork()
	triple := sampleTriple()
	bob := newPeer(t, network, "bob", triple, false)

	alicePub, alicePriv, err := crypto.GenerateSignatureKeypair(triple.Signature)
	require.NoError(t, err)
	bob.engine.SetSigningIdentity(triple.Signature, nil, staticSigningKeys{keys: map[string][]byte{"alice": alicePub}})

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, bob.store.Save(domaintypes.Chat{
		ID:           "signed-chat",
		PeerID:       "alice",
		Status:       domaintypes.StatusEstablished,
		Fingerprint:  "abc123",
		Keys:         domaintypes.ChatKeyRing{Algorithms: triple, Symmetric: []byte("established-symmetric-key")},
		CreatedAt:    past,
		UpdatedAt:    past,
		LastActivity: past,
	}))

	sig, err := crypto.Sign(triple.Signature, alicePriv, []byte("abc123"))
	require.NoError(t, err)

	aliceTransport := network.NewTransport("alice")
	require.NoError(t, aliceTransport.Send(context.Background(), "bob", domaintypes.HandshakeMessage{
		Type:     domaintypes.MsgChatInitSignature,
		ChatUUID: "signed-chat",
		UserSig:  sig,
	}))

	require.Eventually(t, func() bool {
		got, ok, err := bob.store.Get("signed-chat")
		return err == nil && ok && got.PeerCrypto.Verified
	}, 2*time.Second, 10*time.Millisecond, "peer signature should verify")

	got, ok, err := bob.store.Get("signed-chat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domaintypes.StatusEstablished, got.Status, "verification failure/success never tears down an established session")
	assert.True(t, got.LastActivity.After(past), "a successfully processed init signature must bump last_activity")
}
