package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/naveenspark/glitchcity/internal/session"
	"github.com/naveenspark/glitchcity/internal/store"
	"github.com/naveenspark/glitchcity/internal/tui"
	"github.com/naveenspark/glitchcity/pkg/domain"
)

type sayOptions struct {
	channel string
	replyTo string
	timeout time.Duration
}

func newSayCmd(f *rootFlags) *cobra.Command {
	var o sayOptions
	cmd := &cobra.Command{
		Use:   "say [flags] <message>",
		Short: "Send one message and print the replies",
		Long: `Send a message as the human user without the TUI, wait for the
personas that were targeted to answer, and print the exchange.`,
		Example: `  glitchcity say "@NeonViper got any new decks?"
  glitchcity say --channel c2 "/roll 20"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*f, "")
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			w, err := build(ctx, cfg, logger, f.seed)
			if err != nil {
				return err
			}
			defer w.close() //nolint:errcheck
			return say(ctx, cmd.OutOrStdout(), w.session, strings.Join(args, " "), o)
		},
	}
	cmd.Flags().StringVar(&o.channel, "channel", "", "Text channel ID to post in (default: the configured active channel)")
	cmd.Flags().StringVar(&o.replyTo, "reply-to", "", "Message ID to reply to")
	cmd.Flags().DurationVar(&o.timeout, "wait", 30*time.Second, "How long to wait for replies (0 waits for all)")
	return cmd
}

// say posts text and prints the channel's new messages as they land,
// until the scheduled responses finish or the wait runs out.
func say(ctx context.Context, out io.Writer, sess *session.Session, text string, o sayOptions) error {
	if o.channel != "" {
		if err := sess.SwitchChannel(o.channel); err != nil {
			return fmt.Errorf("channel %q: %w", o.channel, err)
		}
		if sess.ActiveChannelID() != o.channel {
			return fmt.Errorf("channel %q: %w", o.channel, session.ErrNotTextChannel)
		}
	}

	st := sess.Store()
	channelID := sess.ActiveChannelID()
	var (
		mu   sync.Mutex
		done bool // set on return; late replies are not printed
	)
	emit := func(f func()) {
		mu.Lock()
		defer mu.Unlock()
		if !done {
			f()
		}
	}
	cancel := st.Subscribe(func(ev store.Event) {
		if ev.Kind != store.MessageAppended || ev.ChannelID != channelID {
			return
		}
		if m, ok := st.Message(channelID, ev.MessageID); ok {
			emit(func() { printMessage(out, st, channelID, m) })
		}
	})
	defer func() {
		cancel()
		emit(func() { done = true })
	}()

	res, err := sess.Send(ctx, text, o.replyTo)
	if err != nil {
		return err
	}
	if len(res.Targets) == 0 {
		emit(func() { fmt.Fprintln(out, bannerDim.Render("(nobody answers)")) }) //nolint:errcheck
		return nil
	}

	finished := make(chan struct{})
	go func() {
		sess.Wait()
		close(finished)
	}()
	var expired <-chan time.Time
	if o.timeout > 0 {
		t := time.NewTimer(o.timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-finished:
	case <-ctx.Done():
	case <-expired:
		emit(func() { fmt.Fprintln(out, bannerDim.Render("(stopped waiting)")) }) //nolint:errcheck
	}
	return nil
}

func printMessage(out io.Writer, st *store.Store, channelID string, m domain.Message) {
	author, ok := st.User(m.UserID)
	name := author.Username
	if !ok {
		name = m.UserID
	}
	stamp := bannerDim.Render(m.Timestamp.Format("15:04"))

	if orig, ok := st.ResolveReply(channelID, m); ok {
		to, _ := st.User(orig.UserID)
		fmt.Fprintf(out, "      %s\n", bannerDim.Render("↳ @"+to.Username)) //nolint:errcheck
	}
	fmt.Fprintf(out, "%s %s: %s\n", stamp, tui.UserStyle(author).Render(name), m.Content) //nolint:errcheck
	if m.Poll != nil {
		fmt.Fprintf(out, "      %s\n", bannerCmd.Render(m.Poll.Question)) //nolint:errcheck
		for i, opt := range m.Poll.Options {
			fmt.Fprintf(out, "      %d. %s (%d)\n", i+1, opt.Text, opt.Votes) //nolint:errcheck
		}
	}
}

func newPersonasCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the simulated users and their presence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*f, "")
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			st := store.New(cfg.World.Seed(time.Now()))
			printPersonas(cmd.OutOrStdout(), st.Personas())
			return nil
		},
	}
}

func printPersonas(out io.Writer, personas []domain.User) {
	for _, u := range personas {
		name := u.Username
		if u.Discriminator != "" {
			name += "#" + u.Discriminator
		}
		line := fmt.Sprintf("%s %s  %s", tui.StatusDot(u.Status), tui.UserStyle(u).Render(fmt.Sprintf("%-22s", name)), bannerDim.Render(fmt.Sprintf("%-8s", u.Status)))
		if u.Bot {
			line += " " + bannerAccent.Render("BOT")
		}
		if u.Activity != "" {
			line += " " + u.Activity
		}
		fmt.Fprintln(out, line) //nolint:errcheck
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printBanner(cmd.OutOrStdout(), version, rand.IntN)
		},
	}
}
