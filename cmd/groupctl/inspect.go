package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func newInspectCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show how an identifier file would be read",
		Long: `Detect the format of FILE, resolve its identifier column and check the
leading identifiers, without starting a session.

Examples:
  groupctl inspect clients.csv
  groupctl inspect export --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := opts.service()
			if err != nil {
				return err
			}

			ins, err := svc.InspectPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ins)
			}

			p := printer{w: cmd.OutOrStdout()}
			p.header(args[0])
			p.field("format", ins.Format)
			p.field("columns", strings.Join(ins.Columns, ", "))
			p.field("column", ins.Column)
			p.field("resolved by", ins.ResolvedBy)
			p.count("identifiers", ins.Total)
			for i, s := range ins.Samples {
				label := ""
				if i == 0 {
					label = "samples"
				}
				p.field(label, s)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
