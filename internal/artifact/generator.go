package artifact

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/usergroups/internal/session"
)

// MetadataFile is the name of the JSON summary written into every artifact set.
const MetadataFile = "metadata.json"

// Channel file suffixes, appended to "{timestamp}_{category}".
const (
	MailSuffix      = "_mail.csv"
	MessagingSuffix = "_wa.csv"
	IgnoredSuffix   = "_ignore.csv"
)

// SetFiles lists the files of the artifact set for folder in name order.
// Pack archives exactly these.
func SetFiles(folder string) []string {
	names := []string{
		folder + MailSuffix,
		folder + MessagingSuffix,
		folder + IgnoredSuffix,
		MetadataFile,
	}
	slices.Sort(names)
	return names
}

// csvHeader is the first row of every channel file.
var csvHeader = []string{"id", "uid"}

// Metadata is the content of metadata.json.
type Metadata struct {
	Datetime   string        `json:"datetime"`
	Category   string        `json:"category"`
	Stats      session.Stats `json:"stats"`
	Content    string        `json:"newsletter_content"`
	SourceFile string        `json:"source_file,omitempty"`
	Original   []string      `json:"original_uids"`
}

// Generator writes a selected session to disk as an artifact set.
type Generator struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

// NewGenerator returns a Generator using 0755 directories and 0644 files.
func NewGenerator() *Generator {
	return &Generator{DirPerm: 0o755, FilePerm: 0o644}
}

// Generate creates baseDir/{timestamp}_{category}/ and writes the three
// channel files and metadata.json into it, returning the directory path.
// An existing directory is reused and its files overwritten. The record
// must be Selected.
//
// Generate does not clean up after a failure; Pack owns removal of the
// directory.
func (g *Generator) Generate(ctx context.Context, rec session.Record, baseDir string) (string, error) {
	if rec.State != session.StateSelected {
		return "", fmt.Errorf("%w: generate requires a selection (state %s)", session.ErrOutOfOrder, rec.State)
	}

	dir := filepath.Join(baseDir, rec.FolderName())
	if err := os.MkdirAll(dir, g.DirPerm); err != nil {
		return "", ioError("mkdir", dir, err)
	}

	prefix := filepath.Join(dir, rec.FolderName())
	channels := []struct {
		path string
		ids  []string
	}{
		{prefix + MailSuffix, rec.Groups.Mail},
		{prefix + MessagingSuffix, rec.Groups.Messaging},
		{prefix + IgnoredSuffix, rec.Groups.Ignored},
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, ch := range channels {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			return g.writeChannel(ch.path, ch.ids)
		})
	}
	eg.Go(func() error {
		return g.writeMetadata(filepath.Join(dir, MetadataFile), rec)
	})

	if err := eg.Wait(); err != nil {
		return "", err
	}

	slog.Debug("artifact set written",
		"dir", dir,
		"mail", len(rec.Groups.Mail),
		"messaging", len(rec.Groups.Messaging),
		"ignored", len(rec.Groups.Ignored),
	)
	return dir, nil
}

func (g *Generator) writeChannel(path string, ids []string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, g.FilePerm)
	if err != nil {
		return ioError("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = ioError("close", path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	if err := w.Write(csvHeader); err != nil {
		return ioError("write", path, err)
	}
	for i, id := range ids {
		if err := w.Write([]string{strconv.Itoa(i + 1), id}); err != nil {
			return ioError("write", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return ioError("write", path, err)
	}
	if err := bw.Flush(); err != nil {
		return ioError("write", path, err)
	}
	return nil
}

func (g *Generator) writeMetadata(path string, rec session.Record) error {
	meta := Metadata{
		Datetime:   rec.Timestamp,
		Category:   rec.Category,
		Stats:      rec.Stats,
		Content:    rec.Content,
		SourceFile: rec.Source.Filename,
		Original:   rec.Identifiers.Values(),
	}

	data, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return ioError("encode", path, err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, g.FilePerm); err != nil {
		return ioError("write", path, err)
	}
	return nil
}
