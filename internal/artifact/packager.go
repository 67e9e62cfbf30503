package artifact

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/JonMunkholm/usergroups/internal/session"
)

// zipEpoch is the earliest time a zip header can carry. It is used when a
// directory name does not start with a session timestamp.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Archive describes a packaged artifact set in storage.
type Archive struct {
	Path     string   // Absolute or storage-relative path of the zip
	Filename string   // Base name, e.g. 2025-03-14_09-26-53_Ads_user_groups.zip
	Size     int64    // Bytes on disk
	Files    []string // Entry names in archive order
}

// Packager bundles artifact directories into zip archives and serves them back.
type Packager struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

// NewPackager returns a Packager with 0755 directories and 0644 archives.
func NewPackager() *Packager {
	return &Packager{DirPerm: 0o755, FilePerm: 0o644}
}

// ArchiveFilename returns the archive name for an artifact directory.
func ArchiveFilename(dir string) string {
	return filepath.Base(filepath.Clean(dir)) + session.ArchiveSuffix + session.ArchiveExt
}

// Pack zips the artifact set in dir (see SetFiles) into
// storageDir/{base(dir)}_user_groups.zip. Any other entry in dir is left
// out, and a missing set file fails the pack. Entries sit at the archive root
// in name order with a fixed mode and a modification time taken from the
// directory's timestamp prefix, so packing the same content twice yields
// identical bytes.
//
// dir is removed on every return path. On failure no partial archive is
// left in storageDir; an archive from an earlier successful Pack is kept.
func (p *Packager) Pack(ctx context.Context, dir, storageDir string) (arc Archive, err error) {
	defer func() {
		if rerr := os.RemoveAll(dir); rerr != nil {
			slog.Warn("failed to remove artifact directory", "dir", dir, "error", rerr)
		}
	}()

	if err := os.MkdirAll(storageDir, p.DirPerm); err != nil {
		return Archive{}, packError("mkdir", storageDir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Archive{}, packError("read", dir, err)
	}

	folder := filepath.Base(filepath.Clean(dir))
	want := SetFiles(folder)
	if extra := foreignEntries(entries, want); len(extra) > 0 {
		slog.Warn("skipping files outside the artifact set", "dir", dir, "files", extra)
	}

	tmp, err := os.CreateTemp(storageDir, ".pack-*.zip")
	if err != nil {
		return Archive{}, packError("create", storageDir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	modTime := archiveModTime(folder)
	zw := zip.NewWriter(tmp)

	files := make([]string, 0, len(want))
	for _, name := range want {
		if err := ctx.Err(); err != nil {
			return Archive{}, packError("zip", dir, err)
		}
		path := filepath.Join(dir, name)
		if err := addFile(zw, path, name, modTime); err != nil {
			return Archive{}, packError("zip", path, err)
		}
		files = append(files, name)
	}

	if err := zw.Close(); err != nil {
		return Archive{}, packError("zip", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return Archive{}, packError("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, p.FilePerm); err != nil {
		return Archive{}, packError("chmod", tmpPath, err)
	}

	filename := ArchiveFilename(dir)
	final := filepath.Join(storageDir, filename)
	if err := os.Rename(tmpPath, final); err != nil {
		return Archive{}, packError("rename", final, err)
	}

	info, err := os.Stat(final)
	if err != nil {
		return Archive{}, packError("stat", final, err)
	}

	slog.Info("archive packaged", "archive", final, "files", len(files), "bytes", info.Size())
	return Archive{Path: final, Filename: filename, Size: info.Size(), Files: files}, nil
}

// foreignEntries returns the names in entries that are not in want.
func foreignEntries(entries []os.DirEntry, want []string) []string {
	var extra []string
	for _, e := range entries {
		if !slices.Contains(want, e.Name()) {
			extra = append(extra, e.Name())
		}
	}
	return extra
}

func addFile(zw *zip.Writer, path, name string, modTime time.Time) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", name)
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modTime,
	}
	hdr.SetMode(0o644)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

// archiveModTime parses the session timestamp at the start of a directory
// name, falling back to the zip epoch.
func archiveModTime(name string) time.Time {
	n := len(session.TimestampLayout)
	if len(name) < n {
		return zipEpoch
	}
	t, err := time.ParseInLocation(session.TimestampLayout, name[:n], time.UTC)
	if err != nil || t.Before(zipEpoch) {
		return zipEpoch
	}
	return t
}

// Delivery is an open archive ready to be streamed to a client. The caller
// must Close it.
type Delivery struct {
	Filename string
	Size     int64
	ModTime  time.Time

	f *os.File
}

func (d *Delivery) Read(p []byte) (int, error) { return d.f.Read(p) }

func (d *Delivery) Seek(offset int64, whence int) (int64, error) { return d.f.Seek(offset, whence) }

func (d *Delivery) Close() error { return d.f.Close() }

// Deliver opens the archive at path for streaming under filename. A
// missing archive yields ErrNotFound.
func (p *Packager) Deliver(path, filename string) (*Delivery, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: ErrNotFound, Op: "open", Path: path, Err: err}
		}
		return nil, packError("open", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, packError("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, &Error{Kind: ErrNotFound, Op: "open", Path: path}
	}

	if filename == "" {
		filename = filepath.Base(path)
	}
	return &Delivery{Filename: filename, Size: info.Size(), ModTime: info.ModTime(), f: f}, nil
}
