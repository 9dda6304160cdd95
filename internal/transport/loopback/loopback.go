// Package loopback provides an in-process Transport: each registered
// peer id keeps a Send/OnMessage pair shaped like a real relay client,
// but instead of marshaling envelopes over the wire it calls the
// destination's registered handler directly. Used exclusively by tests
// and the demo command, where two or more HandshakeEngines need to
// exchange messages without a real network.
package loopback

import (
	"context"
	"fmt"
	"sync"

	domaintypes "yumsg/internal/domain/types"
)

// Network is the shared in-memory registry connecting every Transport
// created against it, the way a real relay's address book connects
// peers it has seen register.
type Network struct {
	mu    sync.Mutex
	peers map[string]*Transport
}

// NewNetwork returns an empty peer registry.
func NewNetwork() *Network {
	return &Network{peers: make(map[string]*Transport)}
}

// Transport is one peer's endpoint into the Network.
type Transport struct {
	network *Network
	peerID  string

	mu      sync.Mutex
	handler func(ctx context.Context, fromPeer string, msg domaintypes.HandshakeMessage)
}

// NewTransport registers peerID on the network and returns its
// Transport. Registering the same peerID twice replaces the prior
// endpoint.
func (n *Network) NewTransport(peerID string) *Transport {
	n.mu.Lock()
	defer n.mu.Unlock()
	t := &Transport{network: n, peerID: peerID}
	n.peers[peerID] = t
	return t
}

// OnMessage registers the handler HandshakeEngine dispatches inbound
// messages to.
func (t *Transport) OnMessage(handler func(ctx context.Context, fromPeer string, msg domaintypes.HandshakeMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Send hands msg to peerID's registered handler on a separate
// goroutine and returns once delivery has been scheduled. Dispatching
// asynchronously mirrors a real network round trip: it lets a
// HandshakeEngine's own handler return (and release that chat's lock)
// before the peer's reply re-enters the same engine for the same
// chat_uuid, which a synchronous call would deadlock on. An
// unregistered peerID is a delivery failure, the loopback equivalent of
// a relay returning "unknown recipient".
func (t *Transport) Send(ctx context.Context, peerID string, msg domaintypes.HandshakeMessage) error {
	t.network.mu.Lock()
	dest, ok := t.network.peers[peerID]
	t.network.mu.Unlock()
	if !ok {
		return fmt.Errorf("loopback: no peer registered as %q", peerID)
	}

	dest.mu.Lock()
	handler := dest.handler
	dest.mu.Unlock()
	if handler == nil {
		return fmt.Errorf("loopback: peer %q has no message handler registered", peerID)
	}
	go handler(ctx, t.peerID, msg)
	return nil
}
