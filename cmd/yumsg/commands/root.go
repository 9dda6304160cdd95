package commands

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"yumsg/internal/pending"
	"yumsg/internal/policy"
	"yumsg/internal/store"
)

var (
	home       string
	passphrase string
	configPath string

	chatStore    *store.SQLiteChatStore
	pendingTable *pending.Table
	policyConfig policy.Config
	log          *logrus.Logger
)

// Execute builds the root command and runs it.
func Execute() error {
	root := &cobra.Command{
		Use:   "yumsg",
		Short: "Post-quantum chat key-establishment core",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log = logrus.StandardLogger()

			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".yumsg")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			cfg, err := policy.LoadConfig(configPath)
			if err != nil {
				return err
			}
			policyConfig = cfg

			s, err := store.NewSQLiteChatStore(filepath.Join(home, "chats.db"), passphrase, log)
			if err != nil {
				return err
			}
			chatStore = s
			pendingTable = pending.New()
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if chatStore != nil {
				return chatStore.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.yumsg)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting keys at rest")
	root.PersistentFlags().StringVar(&configPath, "config", "", "directory containing policy.yaml")

	root.AddCommand(listCmd(), fingerprintCmd(), deleteCmd(), reapCmd(), demoCmd())
	return root.Execute()
}
