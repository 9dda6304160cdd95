package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"yumsg/internal/crypto"
	domain "yumsg/internal/domain"
	"yumsg/internal/handshake"
	"yumsg/internal/pending"
	"yumsg/internal/policy"
	"yumsg/internal/store"
	"yumsg/internal/transport/loopback"
)

// demoSink prints the two lifecycle events a HandshakeEngine publishes.
type demoSink struct{ label string }

func (d demoSink) ChatEstablished(chatID, fingerprint string) {
	fmt.Printf("[%s] chat %s ESTABLISHED, fingerprint %s\n", d.label, chatID, crypto.FormatFingerprint(fingerprint))
}

func (d demoSink) ChatFailed(chatID string, reason error) {
	fmt.Printf("[%s] chat %s FAILED: %v\n", d.label, chatID, reason)
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a full handshake between two in-process peers and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			scratch, err := os.MkdirTemp("", "yumsg-demo-*")
			if err != nil {
				return err
			}
			defer os.RemoveAll(scratch)

			aliceStore, err := store.NewSQLiteChatStore(filepath.Join(scratch, "alice.db"), "demo", log)
			if err != nil {
				return err
			}
			defer aliceStore.Close()
			bobStore, err := store.NewSQLiteChatStore(filepath.Join(scratch, "bob.db"), "demo", log)
			if err != nil {
				return err
			}
			defer bobStore.Close()

			network := loopback.NewNetwork()
			triple := policyConfig.Triple()

			var alicePolicy, bobPolicy domain.AlgorithmPolicy
			if policyConfig.Mode == policy.ModeServer {
				alicePolicy = policy.NewServerMediated(triple)
				bobPolicy = policy.NewServerMediated(triple)
			} else {
				alicePolicy = policy.NewP2P(triple, log)
				bobPolicy = policy.NewP2P(triple, log)
			}

			alice := handshake.New(aliceStore, pending.New(), alicePolicy, network.NewTransport("alice"), demoSink{"alice"}, log)
			bob := handshake.New(bobStore, pending.New(), bobPolicy, network.NewTransport("bob"), demoSink{"bob"}, log)
			alice.Start()
			bob.Start()

			chatID, err := alice.InitiateChat(context.Background(), "bob")
			if err != nil {
				return err
			}
			fmt.Printf("initiated chat %s\n", chatID)

			time.Sleep(200 * time.Millisecond)
			return nil
		},
	}
}
