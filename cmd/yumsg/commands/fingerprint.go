package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"yumsg/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <chat-id>",
		Short: "Print a chat's established fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, ok, err := chatStore.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no such chat: %s", args[0])
			}
			if !chat.IsEstablished() {
				return fmt.Errorf("chat %s is not established (status %s)", chat.ID, chat.Status)
			}
			fmt.Println(crypto.FormatFingerprint(chat.Fingerprint))
			return nil
		},
	}
}
