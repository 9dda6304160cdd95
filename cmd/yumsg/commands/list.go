package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	domaintypes "yumsg/internal/domain/types"
)

func listCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chats, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := []domaintypes.Status{
				domaintypes.StatusInitializing,
				domaintypes.StatusEstablished,
				domaintypes.StatusFailed,
			}
			if status != "" {
				statuses = []domaintypes.Status{domaintypes.Status(status)}
			}

			for _, s := range statuses {
				chats, err := chatStore.ListByStatus(s)
				if err != nil {
					return err
				}
				for _, chat := range chats {
					fmt.Printf("%s\t%s\t%s\t%s\n", chat.ID, chat.Name, chat.Status, chat.PeerID)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (INITIALIZING, ESTABLISHED, FAILED)")
	return cmd
}
