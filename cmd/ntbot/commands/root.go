package commands

import (
	"github.com/spf13/cobra"

	"github.com/ZentaChain/ntlink/pkg/config"
	"github.com/ZentaChain/ntlink/pkg/protocol"
)

var (
	cfg *config.Config

	address      string
	platform     string
	uin          int64
	databasePath string
	keystorePath string
	statusAddr   string
	signURL      string
)

func Execute() error {
	root := newRootCmd()
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ntbot",
		Short:        "Run and manage an NT protocol bot",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, loaded); err != nil {
				return err
			}
			cfg = loaded
			return cfg.Validate()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&address, "address", "", "server address (NTLINK_ADDRESS)")
	flags.StringVar(&platform, "protocol", "", "linux, macos, windows, android_phone or android_pad (NTLINK_PROTOCOL)")
	flags.Int64Var(&uin, "uin", 0, "account uin (NTLINK_UIN)")
	flags.StringVar(&databasePath, "database", "", "SQLite database path (NTLINK_DATABASE_PATH)")
	flags.StringVar(&keystorePath, "keystore", "", "JSON keystore path instead of the database (NTLINK_KEYSTORE_PATH)")
	flags.StringVar(&statusAddr, "status-addr", "", "status endpoint listen address, \"off\" disables (NTLINK_STATUS_ADDR)")
	flags.StringVar(&signURL, "sign-url", "", "sign server URL (NTLINK_SIGN_URL)")

	root.AddCommand(runCmd(), keystoreCmd())
	return root
}

// applyFlags overrides environment values with flags given on the command
// line
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("address") {
		c.Address = address
	}
	if flags.Changed("protocol") {
		p, err := protocol.ParseProtocol(platform)
		if err != nil {
			return err
		}
		c.Protocol = p
	}
	if flags.Changed("uin") {
		c.Uin = uin
	}
	if flags.Changed("database") {
		c.DatabasePath = databasePath
	}
	if flags.Changed("keystore") {
		c.KeystorePath = keystorePath
	}
	if flags.Changed("status-addr") {
		c.StatusAddr = statusAddr
	}
	if c.StatusAddr == "off" {
		c.StatusAddr = ""
	}
	if flags.Changed("sign-url") {
		c.SignURL = signURL
	}
	return nil
}
