// Package handshake implements HandshakeEngine, the state
// machine driving a chat through INITIALIZING -> ESTABLISHED or FAILED
// by exchanging CHAT_INIT_REQUEST/RESPONSE/CONFIRM/SIGNATURE messages.
package handshake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domain "yumsg/internal/domain"
	domaintypes "yumsg/internal/domain/types"
	"yumsg/internal/keyring"
	"yumsg/internal/protocolerr"
)

// Engine wires the ChatStore, PendingSecretTable, AlgorithmPolicy,
// Transport, and UIEventSink together to run the four handshake
// message handlers plus the supplemented CHAT_DELETE path.
type Engine struct {
	store     domain.ChatStore
	pending   domain.PendingSecretTable
	policy    domain.AlgorithmPolicy
	transport domain.Transport
	sink      domain.UIEventSink
	log       *logrus.Logger
	locks     *chatLocks

	signAlg       domaintypes.SignatureAlgorithm
	ownSigningKey []byte
	peerKeys      PeerKeyResolver
}

// New constructs an Engine. sink may be nil (events are dropped).
func New(store domain.ChatStore, pending domain.PendingSecretTable, policy domain.AlgorithmPolicy,
	transport domain.Transport, sink domain.UIEventSink, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		store:     store,
		pending:   pending,
		policy:    policy,
		transport: transport,
		sink:      sink,
		log:       log,
		locks:     newChatLocks(),
	}
}

// Start registers the engine's dispatcher as the transport's message
// handler. Each inbound message is processed under that chat_uuid's
// lock, so two messages for the same chat never overlap, while
// messages for distinct chats run concurrently.
func (e *Engine) Start() {
	e.transport.OnMessage(e.dispatch)
}

func (e *Engine) dispatch(ctx context.Context, fromPeer string, msg domaintypes.HandshakeMessage) {
	if msg.ChatUUID == "" {
		e.log.Warn("dropping handshake message with empty chat_uuid")
		return
	}
	err := e.locks.withLock(msg.ChatUUID, func() error {
		var herr error
		switch msg.Type {
		case domaintypes.MsgChatInitRequest:
			herr = e.HandleInitRequest(ctx, fromPeer, msg)
		case domaintypes.MsgChatInitResponse:
			herr = e.HandleInitResponse(ctx, fromPeer, msg)
		case domaintypes.MsgChatInitConfirm:
			herr = e.HandleInitConfirm(ctx, fromPeer, msg)
		case domaintypes.MsgChatInitSignature:
			herr = e.HandleInitSignature(ctx, fromPeer, msg)
		case domaintypes.MsgChatDelete:
			return e.HandleDelete(ctx, fromPeer, msg)
		default:
			return fmt.Errorf("unrecognized message type %q", msg.Type)
		}
		// Every handshake message that reaches a handler without error
		// bumps the chat's activity clock, including the signature leg,
		// which otherwise never touches last_activity on its own.
		if herr == nil {
			if touchErr := e.store.Touch(msg.ChatUUID); touchErr != nil {
				e.log.WithField("chat_uuid", msg.ChatUUID).WithError(touchErr).Warn("failed to bump chat activity")
			}
		}
		return herr
	})
	if err != nil {
		e.log.WithFields(logrus.Fields{"chat_uuid": msg.ChatUUID, "type": msg.Type}).
			WithError(err).Warn("handshake message handling failed")
	}
}

// InitiateChat creates a new chat as the initiator (role A), generates
// its own KEM keypair, persists it in AWAIT_RESPONSE (INITIALIZING,
// no peer key yet), and emits CHAT_INIT_REQUEST to peerID. Returns the
// assigned chat_uuid. A failed send is logged, not returned; the chat
// is left INITIALIZING.
func (e *Engine) InitiateChat(ctx context.Context, peerID string) (string, error) {
	chatID := uuid.New().String()
	algorithms := e.policy.LocalTriple()

	ring := domaintypes.ChatKeyRing{Algorithms: algorithms}
	if err := keyring.GenerateKeypair(&ring); err != nil {
		return "", withChatUUID(chatID, err)
	}

	now := time.Now().UTC()
	chat := domaintypes.Chat{
		ID:           chatID,
		PeerID:       peerID,
		Keys:         ring,
		Status:       domaintypes.StatusInitializing,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
	}
	if err := e.store.Save(chat); err != nil {
		return "", protocolerr.Wrap(protocolerr.StoreFailure, chatID, err)
	}

	out := domaintypes.HandshakeMessage{
		Type:      domaintypes.MsgChatInitRequest,
		ChatUUID:  chatID,
		PublicKey: ring.OwnPublic,
	}
	if e.policy.CarriesAlgorithms() {
		d := domaintypes.DescriptorFromTriple(algorithms)
		out.Algorithms = &d
	}
	if err := e.transport.Send(ctx, peerID, out); err != nil {
		e.log.WithFields(logrus.Fields{"chat_uuid": chatID, "peer_id": peerID}).WithError(err).
			Warn("failed to send init request; chat stays INITIALIZING")
	}
	return chatID, nil
}

// HandleInitRequest is the responder-side handler for
// CHAT_INIT_REQUEST. A duplicate request for a chat already in
// AWAIT_CONFIRM, or already ESTABLISHED or FAILED, is dropped rather
// than re-sent. A failed send of the response is logged, not returned.
func (e *Engine) HandleInitRequest(ctx context.Context, fromPeer string, msg domaintypes.HandshakeMessage) error {
	if msg.ChatUUID == "" || len(msg.PublicKey) == 0 {
		e.log.WithField("chat_uuid", msg.ChatUUID).Warn("init request missing required fields, dropping")
		return nil
	}

	algorithms, err := e.policy.ResolveRequestTriple(msg.Algorithms)
	if err != nil {
		e.log.WithField("chat_uuid", msg.ChatUUID).WithError(err).Warn("init request algorithm resolution failed, dropping")
		return nil
	}

	existing, found, err := e.store.Get(msg.ChatUUID)
	if err != nil {
		return protocolerr.Wrap(protocolerr.StoreFailure, msg.ChatUUID, err)
	}
	if found && existing.Status != domaintypes.StatusInitializing {
		e.log.WithField("chat_uuid", msg.ChatUUID).Info("duplicate init request for an already-resolved chat, dropping")
		return nil
	}
	if found && existing.Keys.HasPeerKey() {
		e.log.WithField("chat_uuid", msg.ChatUUID).Info("duplicate init request while awaiting confirm, dropping")
		return nil
	}

	var chat domaintypes.Chat
	now := time.Now().UTC()
	if found {
		chat = existing
	} else {
		chat = domaintypes.Chat{
			ID:        msg.ChatUUID,
			PeerID:    fromPeer,
			Status:    domaintypes.StatusInitializing,
			CreatedAt: now,
			Keys:      domaintypes.ChatKeyRing{Algorithms: algorithms},
		}
		if err := keyring.GenerateKeypair(&chat.Keys); err != nil {
			return protocolerr.Wrap(protocolerr.AlgorithmUnsupported, msg.ChatUUID, err)
		}
	}
	chat.UpdatedAt = now
	chat.LastActivity = now

	keyring.SetPeerKey(&chat.Keys, msg.PublicKey)

	capsuleB, secretB, err := kemEncapsulate(chat.Keys.Algorithms.KEM, msg.PublicKey)
	if err != nil {
		return withChatUUID(chat.ID, err)
	}

	e.pending.Put(chat.ID, secretB)

	if err := e.store.Save(chat); err != nil {
		return protocolerr.Wrap(protocolerr.StoreFailure, chat.ID, err)
	}

	out := domaintypes.HandshakeMessage{
		Type:       domaintypes.MsgChatInitResponse,
		ChatUUID:   chat.ID,
		PublicKey:  chat.Keys.OwnPublic,
		KEMCapsule: capsuleB,
	}
	if e.policy.CarriesAlgorithms() {
		d := domaintypes.DescriptorFromTriple(chat.Keys.Algorithms)
		out.Algorithms = &d
	}
	if err := e.transport.Send(ctx, fromPeer, out); err != nil {
		e.log.WithFields(logrus.Fields{"chat_uuid": chat.ID, "peer_id": fromPeer}).WithError(err).
			Warn("failed to send init response")
	}
	return nil
}

// HandleInitResponse is the initiator-side handler for
// CHAT_INIT_RESPONSE. A responder naming a different algorithm triple
// than the one recorded on chat.Keys at CHAT_INIT_REQUEST time fails
// the chat with AlgorithmMismatch rather than proceeding on a triple
// the two sides disagree on. secret_B is B's encapsulated choice; A
// additionally encapsulates its own fresh secret_A into the same
// public key before deriving the shared symmetric key, rather than
// decapsulating the same capsule twice.
func (e *Engine) HandleInitResponse(ctx context.Context, fromPeer string, msg domaintypes.HandshakeMessage) error {
	if msg.ChatUUID == "" || len(msg.PublicKey) == 0 || len(msg.KEMCapsule) == 0 {
		e.log.WithField("chat_uuid", msg.ChatUUID).Warn("init response missing required fields, dropping")
		return nil
	}

	chat, found, err := e.store.Get(msg.ChatUUID)
	if err != nil {
		return protocolerr.Wrap(protocolerr.StoreFailure, msg.ChatUUID, err)
	}
	if !found || chat.Status != domaintypes.StatusInitializing || chat.Keys.HasPeerKey() {
		e.log.WithField("chat_uuid", msg.ChatUUID).Info("init response for unknown or already-advanced chat, dropping")
		return nil
	}

	if msg.Algorithms != nil && !msg.Algorithms.Triple().Equal(chat.Keys.Algorithms) {
		mismatch := protocolerr.New(protocolerr.AlgorithmMismatch, chat.ID)
		return e.failChat(chat, mismatch)
	}

	keyring.SetPeerKey(&chat.Keys, msg.PublicKey)

	secretB, err := kemDecapsulate(chat.Keys.Algorithms.KEM, chat.Keys.OwnPrivate, msg.KEMCapsule)
	if err != nil {
		return e.failChat(chat, withChatUUID(chat.ID, err))
	}
	capsuleA, secretA, err := kemEncapsulate(chat.Keys.Algorithms.KEM, msg.PublicKey)
	if err != nil {
		return e.failChat(chat, withChatUUID(chat.ID, err))
	}

	if err := e.establish(chat, secretA, secretB); err != nil {
		return e.failChat(chat, err)
	}

	out := domaintypes.HandshakeMessage{
		Type:       domaintypes.MsgChatInitConfirm,
		ChatUUID:   chat.ID,
		KEMCapsule: capsuleA,
	}
	if err := e.transport.Send(ctx, fromPeer, out); err != nil {
		return fmt.Errorf("send init confirm for chat %s: %w", chat.ID, err)
	}
	return nil
}

// HandleInitConfirm is the responder-side handler for
// CHAT_INIT_CONFIRM. An absent pending secret means the
// responder's own CHAT_INIT_REQUEST processing never ran (or already
// ran for a different attempt) — HandshakeDesynchronized.
func (e *Engine) HandleInitConfirm(_ context.Context, _ string, msg domaintypes.HandshakeMessage) error {
	if msg.ChatUUID == "" || len(msg.KEMCapsule) == 0 {
		e.log.WithField("chat_uuid", msg.ChatUUID).Warn("init confirm missing required fields, dropping")
		return nil
	}

	chat, found, err := e.store.Get(msg.ChatUUID)
	if err != nil {
		return protocolerr.Wrap(protocolerr.StoreFailure, msg.ChatUUID, err)
	}
	if !found || chat.Status != domaintypes.StatusInitializing || !chat.Keys.HasPeerKey() {
		e.log.WithField("chat_uuid", msg.ChatUUID).Info("init confirm for unknown or not-awaiting chat, dropping")
		return nil
	}

	secretA, err := kemDecapsulate(chat.Keys.Algorithms.KEM, chat.Keys.OwnPrivate, msg.KEMCapsule)
	if err != nil {
		return e.failChat(chat, withChatUUID(chat.ID, err))
	}

	secretB, ok := e.pending.Remove(chat.ID)
	if !ok {
		desync := protocolerr.New(protocolerr.HandshakeDesynchronized, chat.ID)
		return e.failChat(chat, desync)
	}

	if err := e.establish(chat, secretA, secretB); err != nil {
		return e.failChat(chat, err)
	}
	return nil
}

// establish derives the shared symmetric key, computes the
// fingerprint, and persists the chat ESTABLISHED with a cleaned ring in
// one store commit — the single Save call below is the atomicity
// boundary. secretA/secretB and the uncleaned ring are zeroized before
// returning.
func (e *Engine) establish(chat domaintypes.Chat, secretA, secretB []byte) error {
	defer cryptoZeroizeAll(secretA, secretB)

	if err := keyring.Complete(&chat.Keys, secretA, secretB); err != nil {
		return withChatUUID(chat.ID, err)
	}
	fingerprint := keyring.Fingerprint(chat.Keys)
	cleaned := keyring.Cleaned(chat.Keys)
	keyring.Wipe(&chat.Keys)

	now := time.Now().UTC()
	chat.Keys = cleaned
	chat.Fingerprint = fingerprint
	chat.Status = domaintypes.StatusEstablished
	chat.EstablishmentCompletedAt = now
	chat.UpdatedAt = now
	chat.LastActivity = now

	if err := e.store.Save(chat); err != nil {
		return protocolerr.Wrap(protocolerr.StoreFailure, chat.ID, err)
	}

	if e.sink != nil {
		e.sink.ChatEstablished(chat.ID, fingerprint)
	}
	return nil
}

// failChat marks chat FAILED, wipes any remaining key material, and
// publishes ChatFailed. InvalidKey, DecapsulationFailed, and
// HandshakeDesynchronized all tear the chat down this way.
func (e *Engine) failChat(chat domaintypes.Chat, cause error) error {
	keyring.Wipe(&chat.Keys)
	chat.Status = domaintypes.StatusFailed
	chat.UpdatedAt = time.Now().UTC()

	if err := e.store.Save(chat); err != nil {
		e.log.WithField("chat_uuid", chat.ID).WithError(err).Error("failed to persist FAILED chat")
	}
	if e.sink != nil {
		e.sink.ChatFailed(chat.ID, cause)
	}
	return cause
}

// HandleDelete handles CHAT_DELETE: removes the chat record and any
// pending secret for it outright, regardless of its status.
func (e *Engine) HandleDelete(_ context.Context, _ string, msg domaintypes.HandshakeMessage) error {
	if msg.ChatUUID == "" {
		return nil
	}
	if err := e.store.Delete(msg.ChatUUID); err != nil {
		return protocolerr.Wrap(protocolerr.StoreFailure, msg.ChatUUID, err)
	}
	e.pending.Remove(msg.ChatUUID)
	e.log.WithFields(logrus.Fields{"chat_uuid": msg.ChatUUID, "reason": msg.DeleteReason}).Info("chat deleted")
	return nil
}
