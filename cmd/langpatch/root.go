package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/reconcile"
	"github.com/conn-castle/langpatch/internal/txn"
)

func newRootCmd() *cobra.Command {
	var (
		g           globalFlags
		selector    string
		interactive bool
	)
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		Long:          messages.RootLong,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if selector != "" && interactive {
				return errors.New(messages.FlagLangAndInteractive)
			}
			s, err := openSession(cmd, &g, firstArg(args))
			if err != nil {
				return err
			}
			defer s.close()

			if selector == "" && !interactive {
				return runDiagnostic(cmd, s)
			}
			target, err := s.target(cmd, selector, interactive)
			if err != nil {
				return err
			}
			return runChange(cmd, s, &g, target)
		},
	}
	cmd.Flags().Bool("version", false, messages.RootVersionFlag)
	cmd.Flags().StringVar(&selector, "lang", "", messages.FlagLang)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, messages.FlagInteractive)
	g.register(cmd)

	cmd.AddCommand(newPlanCmd(&g), newStatusCmd(&g))
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// runChange applies a language change and reports the outcome.
func runChange(cmd *cobra.Command, s *session, g *globalFlags, target lang.Selection) error {
	reporter, stop := s.reporter(g)
	res, err := s.coord.Run(cmd.Context(), txn.Request{
		Layout:   s.layout,
		Config:   s.cfg,
		Target:   target,
		Provider: s.provider,
		Reporter: reporter,
	})
	stop()

	if res.Interrupted != nil {
		printInterrupted(s.out, res.Interrupted)
	}
	if err != nil {
		var phaseErr *txn.PhaseError
		if errors.As(err, &phaseErr) && phaseErr.Phase != txn.PhaseValidate && res.Previous.Text != "" {
			_, _ = fmt.Fprintln(s.errOut, color.YellowString(messages.OutFailureHintFmt, res.Previous))
		}
		return err
	}
	if res.NoOp {
		_, _ = fmt.Fprintf(s.out, messages.OutNoOpFmt+"\n", target)
		return nil
	}
	_, _ = fmt.Fprintln(s.out, color.GreenString(messages.OutSwitchedFmt, res.Previous, res.Target))
	return nil
}

// runDiagnostic prints the installation status and, when a manifest source is set, whether
// the current voice assets match it. It never writes.
func runDiagnostic(cmd *cobra.Command, s *session) error {
	st, err := s.coord.Status(cmd.Context(), s.layout, s.cfg)
	printStatus(s.out, st, err)
	if err != nil {
		return err
	}
	if s.provider == nil {
		_, _ = fmt.Fprintln(s.out, messages.OutNoProvider)
		return nil
	}
	preview, err := s.coord.Inspect(cmd.Context(), txn.Request{
		Layout:   s.layout,
		Config:   s.cfg,
		Target:   st.Selection,
		Provider: s.provider,
	})
	if err != nil {
		return err
	}
	sum := preview.Plan.Summary()
	if preview.Plan.Empty() {
		_, _ = fmt.Fprintln(s.out, color.GreenString(messages.OutConsistentFmt, st.Selection.Voice, sum.Kept))
		return nil
	}
	_, _ = fmt.Fprintln(s.out, color.YellowString(messages.OutRepairNeededFmt,
		st.Selection.Voice, sum.Adds, sum.Removes+sum.RemovedDirs, st.Selection))
	return nil
}

func printStatus(out io.Writer, st txn.Status, err error) {
	_, _ = fmt.Fprintf(out, messages.OutInstallFmt, st.Layout.GameRoot)
	if err != nil {
		_, _ = fmt.Fprintf(out, messages.OutSelectionUnknown, err)
	} else {
		_, _ = fmt.Fprintf(out, messages.OutSelectionFmt, st.Selection)
		voices := messages.OutNone
		if len(st.VoiceLocal) > 0 {
			voices = strings.Join(st.VoiceLocal, ", ")
		}
		_, _ = fmt.Fprintf(out, messages.OutVoiceLocalFmt, voices)
	}
	if st.Interrupted != nil {
		printInterrupted(out, st.Interrupted)
	}
}

func printInterrupted(out io.Writer, in *txn.Interrupted) {
	_, _ = fmt.Fprintln(out, color.YellowString(messages.OutInterruptedFmt,
		in.ID, in.State, in.Applied, in.Operations, in.UpdatedAt))
	if in.LastError != "" {
		_, _ = fmt.Fprintf(out, messages.OutInterruptedErrFmt+"\n", in.LastError)
	}
	_, _ = fmt.Fprintln(out, messages.OutInterruptedHint)
}

func opLine(op reconcile.Operation) string {
	path := op.Path
	if op.Dir {
		path += "/"
	}
	symbol := "+"
	if op.Kind == reconcile.KindRemove {
		symbol = "-"
	}
	return fmt.Sprintf(messages.OutPlanOpFmt, symbol, path, op.Reason)
}
