package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZentaChain/ntlink/pkg/bot"
	"github.com/ZentaChain/ntlink/pkg/event"
	"github.com/ZentaChain/ntlink/pkg/login"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Log in and keep the bot online until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			go func() {
				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
				<-sigChan
				fmt.Println()
				log.Println("🛑 Shutting down gracefully...")
				cancel()
			}()

			b, err := bot.New(ctx, cfg, bot.Options{})
			if err != nil {
				return fmt.Errorf("failed to create bot: %w", err)
			}
			defer b.Dispose()

			logEvents(b.Bus())

			if err := loginInteractive(ctx, b); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Println()
			fmt.Printf("✅ %d is online\n", b.Uin())
			if cfg.StatusAddr != "" {
				fmt.Printf("   Status:  http://%s/status\n", cfg.StatusAddr)
				fmt.Printf("   Metrics: http://%s/metrics\n", cfg.StatusAddr)
			}
			fmt.Println("\nPress Ctrl+C to stop")

			if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

// loginInteractive logs in and answers captcha and SMS challenges from
// stdin
func loginInteractive(ctx context.Context, b *bot.Bot) error {
	in := bufio.NewReader(os.Stdin)
	err := b.Login(ctx)
	for {
		ce, ok := login.IsChallenge(err)
		if !ok {
			return err
		}

		switch ce.Kind {
		case login.ChallengeCaptcha:
			fmt.Printf("\n🧩 Solve the captcha at:\n   %s\n", ce.URL)
			ticket := prompt(in, "Ticket: ")
			randStr := prompt(in, "Randstr: ")
			err = b.SubmitCaptcha(ctx, ticket, randStr, captchaSid(ce.URL))
		case login.ChallengeSMS:
			if ce.URL != "" {
				fmt.Printf("\n📱 Verify this device at:\n   %s\n", ce.URL)
			}
			err = b.SubmitSMSCode(ctx, prompt(in, "SMS code: "))
		default:
			return err
		}
	}
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// captchaSid pulls the session id the captcha page was opened with
func captchaSid(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("sid")
}

func logEvents(bus *event.Bus) {
	event.Subscribe(bus, func(e event.MessageEvent) {
		log.Printf("💬 [%s] %d: %s", e.Kind, e.FromUin, e.Text)
	})
	event.Subscribe(bus, func(e event.FriendRecallEvent) {
		log.Printf("↩️  friend %d recalled message %d", e.FriendUin, e.Sequence)
	})
	event.Subscribe(bus, func(e event.GroupRecallEvent) {
		log.Printf("↩️  group %d: %d recalled message %d", e.GroupUin, e.AuthorUin, e.Sequence)
	})
	event.Subscribe(bus, func(e event.GroupMemberIncreaseEvent) {
		log.Printf("👋 group %d: member %d joined", e.GroupUin, e.MemberUin)
	})
	event.Subscribe(bus, func(e event.BotOfflineEvent) {
		log.Printf("🔌 offline (%s) %s", e.Reason, e.Tips)
	})
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════════╗")
	fmt.Println("║                  ntbot                            ║")
	fmt.Println("║        NT protocol bot client (ntlink)            ║")
	fmt.Println("╚═══════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("   Server:   %s\n", cfg.Address)
	fmt.Printf("   Protocol: %s\n", cfg.Protocol)
	if cfg.Uin != 0 {
		fmt.Printf("   Account:  %d\n", cfg.Uin)
	}
	fmt.Println()
}
