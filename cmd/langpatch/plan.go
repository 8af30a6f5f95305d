package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/reconcile"
	"github.com/conn-castle/langpatch/internal/txn"
)

// planOutput is the --json form of a dry run.
type planOutput struct {
	txn.Preview
	Summary reconcile.Summary `json:"summary"`
}

func newPlanCmd(g *globalFlags) *cobra.Command {
	var (
		selector    string
		interactive bool
		outputJSON  bool
	)
	cmd := &cobra.Command{
		Use:   messages.PlanUse,
		Short: messages.PlanShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if selector != "" && interactive {
				return errors.New(messages.FlagLangAndInteractive)
			}
			if selector == "" && !interactive {
				return errors.New(messages.PlanLangRequired)
			}
			s, err := openSession(cmd, g, firstArg(args))
			if err != nil {
				return err
			}
			defer s.close()

			target, err := s.target(cmd, selector, interactive)
			if err != nil {
				return err
			}
			preview, err := s.coord.Inspect(cmd.Context(), txn.Request{
				Layout:   s.layout,
				Config:   s.cfg,
				Target:   target,
				Provider: s.provider,
			})
			if err != nil {
				return err
			}

			if outputJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(planOutput{Preview: preview, Summary: preview.Plan.Summary()})
			}
			return renderPlanText(cmd.OutOrStdout(), preview)
		},
	}
	cmd.Flags().StringVar(&selector, "lang", "", messages.FlagLang)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, messages.FlagInteractive)
	cmd.Flags().BoolVar(&outputJSON, "json", false, messages.FlagJSON)
	return cmd
}

func renderPlanText(out io.Writer, preview txn.Preview) error {
	if preview.Interrupted != nil {
		printInterrupted(out, preview.Interrupted)
	}
	if _, err := fmt.Fprintf(out, messages.OutPlanHeaderFmt, preview.Previous, preview.Target); err != nil {
		return err
	}
	sum := preview.Plan.Summary()
	if _, err := fmt.Fprintf(out, messages.OutPlanSummary,
		sum.Adds, humanize.Bytes(uint64(sum.DownloadBytes)), sum.Removes+sum.RemovedDirs, sum.Kept); err != nil {
		return err
	}
	if len(preview.Plan.Operations) == 0 {
		if _, err := fmt.Fprint(out, messages.OutPlanEmpty); err != nil {
			return err
		}
	}
	for _, op := range preview.Plan.Operations {
		if _, err := fmt.Fprint(out, opLine(op)); err != nil {
			return err
		}
	}
	if preview.RecordDiff == "" {
		_, err := fmt.Fprint(out, messages.OutPlanNoRecord)
		return err
	}
	if _, err := fmt.Fprint(out, messages.OutPlanRecord); err != nil {
		return err
	}
	_, err := fmt.Fprint(out, preview.RecordDiff)
	return err
}
