package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/diffsound/attribution"
	"github.com/lixenwraith/diffsound/audio"
	"github.com/lixenwraith/diffsound/config"
)

// commandTimeout bounds a single blocking orchestrator command
const commandTimeout = 10 * time.Second

// options are the persistent flags plus injectable collaborators
type options struct {
	configPath string
	soundsDir  string
	debug      bool
	logDir     string

	newSink func() (audio.Sink, error)
	logFile io.Closer
}

func defaultOptions() *options {
	return &options{
		logDir:  config.DefaultLogDir(),
		newSink: newAudioSink,
	}
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "diffsound",
		Short: "Audio cues for diff views",
		Long: `diffsound plays short sounds while you review changes: a blip for each
insertion or deletion, a chime when the first diff view opens, an ambient
loop while any diff view is open, and a closing cue when the last one goes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if f := setupLogging(opts.debug, opts.logDir); f != nil {
				opts.logFile = f
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logFile != nil {
				opts.logFile.Close()
				opts.logFile = nil
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "settings file (default "+config.DefaultConfigPath()+")")
	flags.StringVar(&opts.soundsDir, "sounds-dir", "", "sounds directory, overrides soundsDir from settings")
	flags.BoolVar(&opts.debug, "debug", false, "write debug logs to "+opts.logDir)

	root.AddCommand(
		newPanelCmd(opts),
		newWatchCmd(opts),
		newReplayCmd(opts),
		newEnableCmd(opts, true),
		newEnableCmd(opts, false),
		newReloadCmd(opts),
		newTestPlayCmd(opts),
		newRestoreDefaultsCmd(opts),
		newScanCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

// withApp starts a non-live instance, runs fn, then stops the loop
func withApp(ctx context.Context, opts *options, sessions attribution.SessionLookup, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(opts, sessions)
	if err != nil {
		return err
	}
	if err := a.start(ctx, false); err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := a.stop(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// command wraps one blocking orchestrator command with a timeout
func command(ctx context.Context, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return fn(cctx)
}

func printStatus(w io.Writer, a *app) {
	for _, kv := range a.orch.Status().Snapshot() {
		fmt.Fprintf(w, "%-20s %s\n", kv[0], kv[1])
	}
}
