package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcdev12/streamscore/go/clients/scoreboard"
	"github.com/mcdev12/streamscore/go/internal/models"
	"github.com/spf13/cobra"
)

type options struct {
	server  string
	timeout time.Duration
	json    bool
	out     io.Writer
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &options{out: out}

	defaultServer := os.Getenv("STREAMSCORE_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}

	root := &cobra.Command{
		Use:          "scorectl",
		Short:        "Drive a StreamScore scoreboard from the terminal",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVarP(&opts.server, "server", "s", defaultServer, "Scoreboard server base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "Time allowed for each request")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Output in JSON format")

	root.AddCommand(
		newShowCommand(opts),
		newLoadCommand(opts),
		newSportsCommand(opts),
		newWatchCommand(opts),
		newScoreCommand(opts),
		newEditCommand(opts, "teams HOME AWAY", "Set both team names", 2, func(c *scoreboard.Controller, args []string) (models.MatchState, error) {
			return c.SetTeams(args[0], args[1])
		}),
		newEditCommand(opts, "colors HOME AWAY", "Set both team colors", 2, func(c *scoreboard.Controller, args []string) (models.MatchState, error) {
			return c.SetColors(args[0], args[1])
		}),
		newEditCommand(opts, "sport NAME", "Switch sport, resetting period and clock", 1, func(c *scoreboard.Controller, args []string) (models.MatchState, error) {
			return c.SetSport(models.Sport(args[0]))
		}),
		newEditCommand(opts, "period LABEL", "Set the period label", 1, func(c *scoreboard.Controller, args []string) (models.MatchState, error) {
			return c.SetPeriod(args[0])
		}),
		newEditCommand(opts, "next-period", "Advance to the next period of the current sport", 0, func(c *scoreboard.Controller, _ []string) (models.MatchState, error) {
			return c.NextPeriod()
		}),
		newEditCommand(opts, "clock VALUE", "Set the clock text", 1, func(c *scoreboard.Controller, args []string) (models.MatchState, error) {
			return c.SetClock(args[0])
		}),
		newEditCommand(opts, "logo home|away FILE", "Set a team logo from an image file", 2, func(c *scoreboard.Controller, args []string) (models.MatchState, error) {
			side, err := parseSide(args[0])
			if err != nil {
				return models.MatchState{}, err
			}
			logo, err := readDataURL(args[1])
			if err != nil {
				return models.MatchState{}, err
			}
			return c.SetLogo(side, logo)
		}),
	)

	return root
}

func newShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current match state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			state, revision, err := scoreboard.NewStateClient(opts.server).GetState(ctx)
			if err != nil {
				return err
			}
			return opts.print(state, revision)
		},
	}
}

// load replaces the whole state from a JSON snapshot file
func newLoadCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "load FILE",
		Short: "Replace the match state with a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read JSON: %w", err)
			}
			var state models.MatchState
			if err := json.Unmarshal(data, &state); err != nil {
				return fmt.Errorf("unmarshal JSON: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			revision, err := scoreboard.NewStateClient(opts.server).PutState(ctx, state)
			if err != nil {
				return err
			}
			return opts.print(state, revision)
		},
	}
}

func newSportsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sports",
		Short: "List the sport presets known to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			presets, err := scoreboard.NewStateClient(opts.server).Sports(ctx)
			if err != nil {
				return err
			}
			if opts.json {
				return json.NewEncoder(opts.out).Encode(presets)
			}
			for _, p := range presets {
				fmt.Fprintf(opts.out, "%-12s %-8s %-8s %d periods\n", p.Sport, p.FirstPeriod(), p.Clock, len(p.Periods))
			}
			return nil
		},
	}
}

// watch follows broadcasts as an overlay until interrupted
func newWatchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print every state broadcast until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			config := scoreboard.DefaultSyncConfig(opts.server)
			config.Role = "overlay"
			client := scoreboard.NewSyncClient(config)
			overlay := scoreboard.NewOverlay(client)

			updates := make(chan models.MatchState, 16)
			unsubscribe := overlay.Subscribe(func(s models.MatchState) {
				select {
				case updates <- s:
				default:
				}
			})
			defer unsubscribe()

			errCh := make(chan error, 1)
			go func() { errCh <- client.Run(ctx) }()

			for {
				select {
				case s := <-updates:
					if err := opts.print(s, client.Revision()); err != nil {
						return err
					}
				case <-errCh:
					return nil
				}
			}
		},
	}
}

func newScoreCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "score home|away +|-",
		Short:     "Add or remove one point",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"home", "away"},
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := parseSide(args[0])
			if err != nil {
				return err
			}
			var delta int
			switch args[1] {
			case "+", "up":
				delta = 1
			case "-", "down":
				delta = -1
			default:
				return fmt.Errorf("score change must be + or -, got %q", args[1])
			}

			return opts.withController(cmd.Context(), func(c *scoreboard.Controller) (models.MatchState, error) {
				switch {
				case side == models.SideHome && delta > 0:
					return c.IncrementHome()
				case side == models.SideHome:
					return c.DecrementHome()
				case delta > 0:
					return c.IncrementAway()
				default:
					return c.DecrementAway()
				}
			})
		},
	}
}

type editFunc func(c *scoreboard.Controller, args []string) (models.MatchState, error)

func newEditCommand(opts *options, use, short string, nargs int, edit editFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withController(cmd.Context(), func(c *scoreboard.Controller) (models.MatchState, error) {
				return edit(c, args)
			})
		},
	}
}

// withController connects as a controller, applies one edit and waits for the
// server to broadcast the result back
func (o *options) withController(parent context.Context, edit func(*scoreboard.Controller) (models.MatchState, error)) error {
	ctx, cancel := context.WithTimeout(parent, o.timeout)
	defer cancel()

	presets, err := scoreboard.NewStateClient(o.server).Sports(ctx)
	if err != nil {
		return err
	}

	client := scoreboard.NewSyncClient(scoreboard.DefaultSyncConfig(o.server))
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Run(runCtx)
	}()
	defer func() {
		stop()
		<-done
	}()

	if _, err := client.WaitForState(ctx); err != nil {
		return fmt.Errorf("wait for initial state: %w", err)
	}

	controller := scoreboard.NewController(client, presets)
	echoed := make(chan models.MatchState, 16)
	unsubscribe := controller.Subscribe(func(s models.MatchState) {
		select {
		case echoed <- s:
		default:
		}
	})
	defer unsubscribe()

	state, err := edit(controller)
	if err != nil {
		return err
	}

	for {
		select {
		case s := <-echoed:
			if s == state {
				return o.print(state, client.Revision())
			}
		case <-ctx.Done():
			return fmt.Errorf("wait for broadcast: %w", ctx.Err())
		}
	}
}

func (o *options) print(state models.MatchState, revision uint64) error {
	if o.json {
		return json.NewEncoder(o.out).Encode(struct {
			Revision uint64            `json:"revision"`
			State    models.MatchState `json:"state"`
		}{revision, state})
	}
	_, err := fmt.Fprintf(o.out, "#%d [%s] %s %d - %d %s | %s | %s\n",
		revision, state.Sport, state.HomeTeam, state.HomeScore, state.AwayScore, state.AwayTeam, state.Period, state.Clock)
	return err
}

func parseSide(arg string) (models.Side, error) {
	switch models.Side(arg) {
	case models.SideHome, models.SideAway:
		return models.Side(arg), nil
	}
	return "", fmt.Errorf("side must be home or away, got %q", arg)
}

// readDataURL reads an image file into a data URL
func readDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read logo: %w", err)
	}
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
