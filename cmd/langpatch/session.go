package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conn-castle/langpatch/internal/config"
	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/layout"
	"github.com/conn-castle/langpatch/internal/logging"
	"github.com/conn-castle/langpatch/internal/manifest"
	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/progress"
	"github.com/conn-castle/langpatch/internal/prompt"
	"github.com/conn-castle/langpatch/internal/terminal"
	"github.com/conn-castle/langpatch/internal/txn"
)

var (
	getwd            = os.Getwd
	lookupEnv        = os.LookupEnv
	isTerminalWriter = terminal.IsTerminalWriter
	selectLanguages  = func(options []prompt.Option, current lang.Selection) (lang.Selection, error) {
		return prompt.NewHuhUI().Select(options, current)
	}
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	manifest   string
	workers    int
	quiet      bool
	verbose    bool
	noProgress bool
}

func (g *globalFlags) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", messages.FlagConfig)
	flags.StringVar(&g.manifest, "manifest", "", messages.FlagManifest)
	flags.IntVar(&g.workers, "workers", 0, messages.FlagWorkers)
	flags.BoolVarP(&g.quiet, "quiet", "q", false, messages.FlagQuiet)
	flags.BoolVarP(&g.verbose, "verbose", "v", false, messages.FlagVerbose)
	flags.BoolVar(&g.noProgress, "no-progress", false, messages.FlagNoProgress)
}

// session is everything a command needs once the installation has been found.
type session struct {
	cfg      *config.Config
	set      lang.Set
	layout   layout.Layout
	provider manifest.Provider
	log      *zap.Logger
	coord    *txn.Coordinator
	out      io.Writer
	errOut   io.Writer
}

// openSession loads the config (file, then environment, then flags), resolves the
// installation from pathArg, and opens the manifest provider when a source is set.
func openSession(cmd *cobra.Command, g *globalFlags, pathArg string) (*session, error) {
	cwd, err := getwd()
	if err != nil {
		return nil, fmt.Errorf(messages.GetwdFmt, err)
	}
	cfg, err := config.LoadOptional(g.configPath, cwd)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return nil, err
	}
	if g.manifest != "" {
		cfg.Manifest.Source = g.manifest
	}
	if cmd.Flags().Changed("workers") {
		if g.workers <= 0 {
			return nil, fmt.Errorf(messages.FlagWorkersInvalidFmt, g.workers)
		}
		cfg.Apply.Workers = g.workers
	}
	set, err := cfg.LanguageSet()
	if err != nil {
		return nil, err
	}

	log := logging.New(g.verbose, cmd.ErrOrStderr())
	l, err := layout.Resolve(layout.RealSystem{}, pathArg, cwd, cfg.Layout)
	if err != nil {
		return nil, err
	}
	log.Debug("resolved installation",
		zap.String("game_root", l.GameRoot),
		zap.String("design_data_root", l.DesignDataRoot),
		zap.String("audio_root", l.AudioRoot))

	provider, err := manifest.Open(cfg.Manifest)
	if err != nil {
		if !errors.Is(err, manifest.ErrNoSource) {
			return nil, err
		}
		provider = nil
		log.Debug("no manifest source configured")
	}

	out := cmd.OutOrStdout()
	if g.quiet {
		out = io.Discard
	}
	return &session{
		cfg:      cfg,
		set:      set,
		layout:   l,
		provider: provider,
		log:      log,
		coord:    txn.New(txn.Options{Logger: log}),
		out:      out,
		errOut:   cmd.ErrOrStderr(),
	}, nil
}

// target returns the selection named by --lang, or asks for one when interactive.
func (s *session) target(cmd *cobra.Command, selector string, interactive bool) (lang.Selection, error) {
	if !interactive {
		return lang.ParseSelector(selector, s.set)
	}
	st, _ := s.coord.Status(cmd.Context(), s.layout, s.cfg)
	return selectLanguages(prompt.Options(s.set, s.cfg.Audio.LanguageDirs), st.Selection)
}

// reporter picks the progress renderer: nothing when quiet, a bar on a terminal, plain
// lines otherwise. stop must be called once the transaction ends.
func (s *session) reporter(g *globalFlags) (txn.Reporter, func()) {
	switch {
	case g.quiet:
		return txn.NopReporter{}, func() {}
	case !g.noProgress && !g.verbose && isTerminalWriter(s.errOut):
		bar := progress.NewBar(s.errOut)
		bar.Start()
		return bar, bar.Stop
	}
	return progress.NewText(s.out, g.verbose), func() {}
}

func (s *session) close() {
	_ = s.log.Sync()
}
