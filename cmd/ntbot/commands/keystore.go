package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/storage"
)

func keystoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keystore",
		Short: "Inspect and remove saved sessions in the database",
	}
	cmd.AddCommand(keystoreListCmd(), keystoreShowCmd(), keystoreDeleteCmd())
	return cmd
}

func withKeystores(fn func(ctx context.Context, ks *storage.KeystoreStore) error) error {
	if cfg.DatabasePath == "" {
		return errors.New("no database configured (--database)")
	}
	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return fn(ctx, db.Keystores())
}

func keystoreListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved accounts, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeystores(func(ctx context.Context, store *storage.KeystoreStore) error {
				uins, err := store.Uins(ctx)
				if err != nil {
					return err
				}
				if len(uins) == 0 {
					fmt.Println("No saved sessions")
					return nil
				}
				for _, u := range uins {
					doc, err := store.Load(ctx, u)
					if err != nil {
						return err
					}
					printSummary(doc)
				}
				return nil
			})
		},
	}
}

func keystoreShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <uin>",
		Short: "Show one saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseUin(args[0])
			if err != nil {
				return err
			}
			return withKeystores(func(ctx context.Context, store *storage.KeystoreStore) error {
				doc, err := store.Load(ctx, target)
				if errors.Is(err, keystore.ErrNotFound) {
					return fmt.Errorf("no saved session for %d", target)
				}
				if err != nil {
					return err
				}
				printSummary(doc)
				fmt.Printf("   Guid:     %x\n", doc.Guid)
				fmt.Printf("   Uid:      %s\n", doc.Uid)
				fmt.Printf("   A2:       %d bytes\n", len(doc.Tickets.A2))
				fmt.Printf("   D2:       %d bytes\n", len(doc.Tickets.D2))
				return nil
			})
		},
	}
}

func keystoreDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uin>",
		Short: "Forget a saved session so the next run logs in again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseUin(args[0])
			if err != nil {
				return err
			}
			return withKeystores(func(ctx context.Context, store *storage.KeystoreStore) error {
				if err := store.Delete(ctx, target); err != nil {
					if errors.Is(err, storage.ErrNotFound) {
						return fmt.Errorf("no saved session for %d", target)
					}
					return err
				}
				fmt.Printf("🗑️  Deleted session for %d\n", target)
				return nil
			})
		},
	}
}

func parseUin(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid uin %q", s)
	}
	return v, nil
}

func printSummary(doc *keystore.Document) {
	session := "no tickets"
	switch {
	case len(doc.Sealed) > 0:
		session = "sealed"
	case !doc.Tickets.Empty():
		session = "logged in"
	}
	fmt.Printf("%d  %-12s  device=%q  updated=%s\n",
		doc.Uin, session, doc.DeviceName, doc.UpdatedAt.Format(time.RFC3339))
}
