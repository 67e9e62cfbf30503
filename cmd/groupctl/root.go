package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/usergroups/internal/config"
	"github.com/JonMunkholm/usergroups/internal/core"
	"github.com/JonMunkholm/usergroups/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configFile string
	verbose    bool
	storageDir string
	uploadsDir string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "groupctl",
		Short: "Build user group archives from identifier files",
		Long: `Run the upload, select and download pipeline from the command line.

groupctl reads the same configuration as the server: defaults, an optional
YAML file and environment variables, with .env loaded when present.

Examples:
  groupctl run --file clients.csv --category Webinar --rate 40
  groupctl inspect clients.xlsx
  groupctl sweep`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default: $CONFIG_FILE)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.storageDir, "storage", "", "Archive directory (overrides STORAGE_DIR)")
	root.PersistentFlags().StringVar(&opts.uploadsDir, "uploads", "", "Spool directory (overrides UPLOADS_DIR)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newRunCmd(opts), newInspectCmd(opts), newSweepCmd(opts))
	return root
}

// service loads configuration, applies flag overrides and builds a Service.
// Logs go to stderr so stdout carries only results.
func (o *options) service() (*core.Service, *config.Config, error) {
	_ = godotenv.Load()

	path := o.configFile
	if path == "" {
		path = os.Getenv(config.FileEnv)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if o.storageDir != "" {
		cfg.Storage.StorageDir = o.storageDir
	}
	if o.uploadsDir != "" {
		cfg.Storage.UploadsDir = o.uploadsDir
	}

	level := cfg.Logging.Level
	if o.verbose {
		level = "debug"
	}
	logging.SetupWriter(os.Stderr, level, cfg.Logging.Format)

	svc, err := core.NewService(cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}
