package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/conn-castle/langpatch/internal/messages"
)

func newStatusCmd(g *globalFlags) *cobra.Command {
	var outputJSON bool
	cmd := &cobra.Command{
		Use:   messages.StatusUse,
		Short: messages.StatusShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, g, firstArg(args))
			if err != nil {
				return err
			}
			defer s.close()

			st, err := s.coord.Status(cmd.Context(), s.layout, s.cfg)
			if outputJSON {
				if err != nil {
					return err
				}
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(st)
			}
			printStatus(cmd.OutOrStdout(), st, err)
			return err
		},
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, messages.FlagJSON)
	return cmd
}
