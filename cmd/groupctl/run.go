package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/usergroups/internal/session"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		file        string
		category    string
		rate        int
		content     string
		contentFile string
		out         string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Upload, select and package in one step",
		Long: `Read an identifier file, split it into channel groups for the given
category and open rate, and write the archive to storage.

Examples:
  groupctl run --file clients.csv --category "Digest Product" --rate 30
  groupctl run --file ids.json --category Ads --rate 80 --content-file letter.txt --out ./dist`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if contentFile != "" {
				if cmd.Flags().Changed("content") {
					return errors.New("--content and --content-file are mutually exclusive")
				}
				data, err := os.ReadFile(contentFile)
				if err != nil {
					return fmt.Errorf("read content: %w", err)
				}
				content = string(data)
			}

			svc, _, err := opts.service()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open identifier file: %w", err)
			}
			defer f.Close()

			up, err := svc.Upload(ctx, filepath.Base(file), f)
			if err != nil {
				return err
			}

			preview, err := svc.Select(ctx, session.Selection{
				Category: category,
				Rate:     rate,
				Content:  content,
				FileID:   up.FileID,
			})
			if err != nil {
				return err
			}

			arc, err := svc.Package(ctx)
			if err != nil {
				return err
			}

			path := arc.Path
			if out != "" {
				if path, err = copyArchive(arc.Path, out); err != nil {
					return err
				}
			}

			p := printer{w: cmd.OutOrStdout()}
			p.header(preview.ArchiveName)
			p.field("source", fmt.Sprintf("%s (%s, column %s via %s)", up.Filename, up.Format, up.Column, up.ResolvedBy))
			p.count("users", preview.Stats.TotalUsers)
			p.count("open rate", preview.Stats.ExpectedOpenRate)
			p.count("mail", preview.Stats.MailGroup)
			p.count("messaging", preview.Stats.WhatsappGroup)
			p.count("ignored", preview.Stats.IgnoredGroup)
			p.field("size", fmt.Sprintf("%d bytes", arc.Size))
			p.path("archive", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Identifier file (CSV, JSON or XLSX)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Newsletter category")
	cmd.Flags().IntVarP(&rate, "rate", "r", 50, "Expected open rate, 0 to 100")
	cmd.Flags().StringVar(&content, "content", "", "Newsletter content")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Read newsletter content from a file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Also copy the archive into this directory")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

// copyArchive copies the archive at src into dir, keeping its name.
func copyArchive(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	outFile, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create output archive: %w", err)
	}
	if _, err := io.Copy(outFile, in); err != nil {
		outFile.Close()
		return "", fmt.Errorf("copy archive: %w", err)
	}
	return dst, outFile.Close()
}
