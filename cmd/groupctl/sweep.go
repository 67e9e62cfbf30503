package main

import (
	"github.com/spf13/cobra"
)

func newSweepCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove archives and spool files past retention",
		Long: `Run one janitor pass: delete archives in storage, spooled uploads and
leftover working directories older than STORAGE_RETENTION.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := opts.service()
			if err != nil {
				return err
			}

			res, err := svc.Sweep(cmd.Context())

			p := printer{w: cmd.OutOrStdout()}
			p.header("sweep")
			p.field("retention", cfg.Storage.Retention)
			p.count("archives", res.Archives)
			p.count("uploads", res.Uploads)
			p.count("work dirs", res.WorkDirs)
			if res.Failed > 0 {
				p.count("failed", res.Failed)
			}
			return err
		},
	}
}
