package commands

import (
	"github.com/spf13/cobra"
)

func deleteCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Remove a chat record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log.WithFields(map[string]any{"chat_uuid": args[0], "reason": reason}).Info("deleting chat")
			return chatStore.Delete(args[0])
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the log")
	return cmd
}
