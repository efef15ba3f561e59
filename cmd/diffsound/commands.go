package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/diffsound/catalog"
	"github.com/lixenwraith/diffsound/config"
	"github.com/lixenwraith/diffsound/core"
	"github.com/lixenwraith/diffsound/host"
	"github.com/lixenwraith/diffsound/panel"
)

func newPanelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "panel",
		Short: "Run with the interactive status panel (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd, opts)
		},
	}
}

func runPanel(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	a, err := newApp(opts, nil)
	if err != nil {
		return err
	}
	if err := a.start(ctx, true); err != nil {
		return err
	}
	defer a.stop()

	screen, err := panel.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	return panel.New(screen, a.orch, a.store).Run(ctx)
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run headless, following settings and the sounds directory until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(opts, nil)
			if err != nil {
				return err
			}
			if err := a.start(ctx, true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s (settings %s)\n", a.catalog.Root(), a.store.Path())
			<-ctx.Done()
			return a.stop()
		},
	}
}

func newReplayCmd(opts *options) *cobra.Command {
	var (
		speed float64
		tail  time.Duration
		quiet bool
	)
	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a scripted editor session through the cue engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := host.ParseFile(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, script.Session(), func(ctx context.Context, a *app) error {
				r := host.NewReplayer()
				r.Speed = speed
				n, err := r.Run(ctx, script, a.orch)
				if err != nil {
					return fmt.Errorf("replay stopped after %d steps: %w", n, err)
				}
				// Let pending debounces and the last cue finish
				if err := sleepCtx(ctx, tail); err != nil {
					return err
				}
				if !quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "replayed %d steps\n", n)
					printStatus(cmd.OutOrStdout(), a)
				}
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().DurationVar(&tail, "tail", time.Second, "time to keep playing after the last step")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the final status")
	return cmd
}

func newEnableCmd(opts *options, enabled bool) *cobra.Command {
	use, short := "enable", "Turn cues on and save the setting"
	if !enabled {
		use, short = "disable", "Silence every cue and save the setting"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, nil, func(ctx context.Context, a *app) error {
				fn := a.orch.Disable
				if enabled {
					fn = a.orch.Enable
				}
				if err := command(ctx, fn); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%sd\n", use)
				return nil
			})
		},
	}
}

func newReloadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rescan the sounds directory and load every cue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, nil, func(ctx context.Context, a *app) error {
				if err := command(ctx, a.orch.Reload); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, a.orch.Status().Message())
				printResolved(out, a)
				return nil
			})
		},
	}
}

func newTestPlayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "test-play <role>",
		Short:     "Play one cue at its configured volume",
		Long:      "Roles: add, remove, diff-open, diff-active, diff-close.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"add", "remove", "diff-open", "diff-active", "diff-close"},
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := core.ParseRole(args[0])
			if !ok {
				return fmt.Errorf("unknown role %q", args[0])
			}
			return withApp(cmd.Context(), opts, nil, func(ctx context.Context, a *app) error {
				if err := command(ctx, a.orch.Reload); err != nil {
					return err
				}
				if err := command(ctx, func(ctx context.Context) error { return a.orch.TestPlay(ctx, role) }); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "playing %s (%s)\n", role, a.channel.Path(role))
				return sleepCtx(ctx, a.channel.Duration(role))
			})
		},
	}
}

func newRestoreDefaultsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "restore-defaults",
		Short: "Copy the bundled sounds over the files in the sounds directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, nil, func(ctx context.Context, a *app) error {
				if err := command(ctx, a.orch.RestoreDefaults); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.orch.Status().Message())
				return nil
			})
		},
	}
}

func newScanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List detected sound files and the file chosen for each cue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.NewStore(opts.configPath)
			cfg, err := pinnedSource{Store: store, soundsDir: opts.soundsDir}.Load()
			if err != nil {
				return err
			}
			cat := catalog.New(cfg.SoundsDir)
			detected, err := cat.Scan()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tROLE\tFORMAT\tORIGIN")
			for _, d := range detected {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Role, d.Format, d.Origin)
			}
			tw.Flush()

			fmt.Fprintln(out)
			resolved := cat.Resolve(cfg, detected)
			tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CUE\tFILE")
			for _, r := range core.Roles() {
				fmt.Fprintf(tw, "%s\t%s\n", r, displayPath(cat.ResolvePath(resolved.Sound(r))))
			}
			return tw.Flush()
		},
	}
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite a legacy settings file into the per-cue shape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.NewStore(opts.configPath)
			migrated, err := store.Migrate()
			if err != nil {
				return err
			}
			if migrated {
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", store.Path())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s needs no migration\n", store.Path())
			}
			return nil
		},
	}
}

func printResolved(w io.Writer, a *app) {
	cfg := a.orch.Config()
	for _, r := range core.Roles() {
		state := "on"
		if !cfg.RoleEnabled(r) {
			state = "off"
		}
		fmt.Fprintf(w, "%-11s %-3s %s\n", r, state, displayPath(a.channel.Path(r)))
	}
}

func displayPath(p string) string {
	if p == "" {
		return "(none)"
	}
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
