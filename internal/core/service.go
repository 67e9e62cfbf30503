package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/usergroups/internal/artifact"
	"github.com/JonMunkholm/usergroups/internal/config"
	"github.com/JonMunkholm/usergroups/internal/logging"
	"github.com/JonMunkholm/usergroups/internal/session"
	"github.com/JonMunkholm/usergroups/internal/tabular"
)

// DefaultStepTimeout bounds a single pipeline step when none is configured.
const DefaultStepTimeout = 10 * time.Minute

// Service provides the pipeline operations in their required order. It is
// safe for concurrent use; pipeline steps are serialized by a Gate.
type Service struct {
	uploadsDir  string
	storageDir  string
	workDir     string
	maxFileSize int64
	stepTimeout time.Duration

	sweepInterval time.Duration
	sweepEnabled  bool

	reader  *tabular.Reader
	store   *session.Store
	gen     *artifact.Generator
	pack    *artifact.Packager
	janitor *artifact.Janitor
	gate    *Gate
	metrics *Metrics

	storeOpts []session.StoreOption
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.storeOpts = append(s.storeOpts, session.WithClock(now))
	}
}

// WithGrouper replaces the default rate-based grouping.
func WithGrouper(g session.Grouper) Option {
	return func(s *Service) {
		s.storeOpts = append(s.storeOpts, session.WithGrouper(g))
	}
}

// NewService builds a Service from cfg and creates the uploads, storage
// and work directories.
func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	reader, err := NewReader(cfg.Identifier)
	if err != nil {
		return nil, err
	}

	s := &Service{
		uploadsDir:    cfg.Storage.UploadsDir,
		storageDir:    cfg.Storage.StorageDir,
		workDir:       cfg.Storage.WorkDir,
		maxFileSize:   cfg.Upload.MaxFileSize,
		stepTimeout:   cfg.Upload.Timeout,
		sweepInterval: cfg.Storage.SweepInterval,
		sweepEnabled:  cfg.Storage.SweepEnabled,
		reader:        reader,
		gen:           artifact.NewGenerator(),
		pack:          artifact.NewPackager(),
		gate:          NewGate(cfg.Upload.MaxWaitTime),
		metrics:       newMetrics(),
	}
	if s.stepTimeout <= 0 {
		s.stepTimeout = DefaultStepTimeout
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = session.NewStore(s.storeOpts...)
	s.janitor = &artifact.Janitor{
		StorageDir: s.storageDir,
		UploadsDir: s.uploadsDir,
		WorkDir:    s.workDir,
		Retention:  cfg.Storage.Retention,
		OnSweep:    s.recordSweep,
	}

	for _, dir := range []string{s.uploadsDir, s.storageDir, s.workDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return s, nil
}

// NewReader builds the identifier reader described by cfg. A pattern takes
// precedence over a separator; with neither, the structural check is off.
func NewReader(cfg config.IdentifierConfig) (*tabular.Reader, error) {
	v := &tabular.Validator{SampleSize: cfg.SampleSize}
	switch {
	case cfg.Pattern != "":
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			return nil, fmt.Errorf("identifier pattern: %w", err)
		}
		v.Rule = tabular.PatternRule(re)
	case cfg.Separator != "":
		v.Rule = tabular.SeparatorRule(cfg.Separator)
	}

	opts := []tabular.Option{tabular.WithColumn(cfg.Column), tabular.WithValidator(v)}
	if len(cfg.Aliases) > 0 {
		opts = append(opts, tabular.WithAliases(cfg.Aliases...))
	}
	return tabular.NewReader(opts...), nil
}

// Metrics returns the service's collectors.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// UploadResult describes an accepted identifier file.
type UploadResult struct {
	FileID     string             `json:"file_id"`
	Filename   string             `json:"filename"`
	Format     tabular.Format     `json:"format"`
	Total      int                `json:"total_users"`
	Column     string             `json:"column"`
	ResolvedBy tabular.Resolution `json:"resolved_by"`
	Samples    []string           `json:"samples"`
}

// Upload spools body to the uploads directory, reads its identifiers and
// makes them the current session, discarding any earlier selection. The
// session is left untouched when the file is rejected.
func (s *Service) Upload(ctx context.Context, filename string, body io.Reader) (UploadResult, error) {
	res, err := s.upload(ctx, filename, body)
	s.metrics.uploads.WithLabelValues(result(err), string(res.Format)).Inc()
	if err != nil {
		s.metrics.failed("upload", err)
		return UploadResult{}, err
	}
	s.metrics.identifiers.Observe(float64(res.Total))
	return res, nil
}

func (s *Service) upload(ctx context.Context, filename string, body io.Reader) (UploadResult, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return UploadResult{}, err
	}

	if err := s.gate.Acquire(ctx, "upload"); err != nil {
		return UploadResult{}, err
	}
	defer s.gate.Release()

	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	fileID := uuid.NewString()
	log := logging.WithFields(ctx, "file_id", fileID, "filename", name)

	path, err := s.spool(ctx, fileID, name, body)
	if err != nil {
		return UploadResult{}, err
	}

	ins, err := s.inspectFile(ctx, name, path)
	if err != nil {
		os.Remove(path)
		log.Warn("upload rejected", "error", err)
		return UploadResult{Format: formatOf(err)}, err
	}

	if err := s.store.Upload(ins.Record, session.Source{FileID: fileID, Filename: name}); err != nil {
		os.Remove(path)
		return UploadResult{Format: ins.Format}, err
	}

	log.Info("upload accepted",
		"format", ins.Format,
		"column", ins.Column,
		"resolved_by", ins.ResolvedBy,
		"total", ins.Total,
	)

	return UploadResult{
		FileID:     fileID,
		Filename:   name,
		Format:     ins.Format,
		Total:      ins.Total,
		Column:     ins.Column,
		ResolvedBy: ins.ResolvedBy,
		Samples:    ins.Samples,
	}, nil
}

// Inspect reads body like Upload but only reports what it found; the
// session and the uploads directory are unchanged afterwards.
func (s *Service) Inspect(ctx context.Context, filename string, body io.Reader) (*tabular.Inspection, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	path, err := s.spool(ctx, "inspect-"+uuid.NewString(), name, body)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	return s.inspectFile(ctx, name, path)
}

// InspectPath inspects a file already on disk.
func (s *Service) InspectPath(ctx context.Context, path string) (*tabular.Inspection, error) {
	return s.inspectFile(ctx, filepath.Base(path), path)
}

func (s *Service) inspectFile(ctx context.Context, name, path string) (*tabular.Inspection, error) {
	format, err := tabular.ResolveFormat(name, path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.reader.Inspect(path, format)
}

// spool copies body to uploads/<id><ext>, enforcing the size limit.
func (s *Service) spool(ctx context.Context, id, name string, body io.Reader) (string, error) {
	path := filepath.Join(s.uploadsDir, id+strings.ToLower(filepath.Ext(name)))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("spool upload: %w", err)
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: io.LimitReader(body, s.maxFileSize+1)})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxFileSize {
		err = fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, s.maxFileSize)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// Select applies sel to the current upload.
func (s *Service) Select(ctx context.Context, sel session.Selection) (session.Preview, error) {
	preview, err := s.selectUsers(ctx, sel)
	s.metrics.selections.WithLabelValues(result(err)).Inc()
	if err != nil {
		s.metrics.failed("select", err)
	}
	return preview, err
}

func (s *Service) selectUsers(ctx context.Context, sel session.Selection) (session.Preview, error) {
	if err := s.gate.Acquire(ctx, "select"); err != nil {
		return session.Preview{}, err
	}
	defer s.gate.Release()

	preview, err := s.store.Select(sel)
	if err != nil {
		return session.Preview{}, err
	}

	logging.FromContext(ctx).Info("selection accepted",
		"archive", preview.ArchiveName,
		"total", preview.Stats.TotalUsers,
		"rate", preview.Stats.ExpectedOpenRate,
	)
	return preview, nil
}

// Package generates the artifact set for the current selection and packs
// it into storage. Running it again rebuilds the same archive.
func (s *Service) Package(ctx context.Context) (artifact.Archive, error) {
	if err := s.gate.Acquire(ctx, "package"); err != nil {
		s.metrics.failed("package", err)
		return artifact.Archive{}, err
	}
	defer s.gate.Release()

	return s.packageLocked(ctx)
}

func (s *Service) packageLocked(ctx context.Context) (arc artifact.Archive, err error) {
	start := time.Now()
	defer func() {
		s.metrics.packages.WithLabelValues(result(err)).Inc()
		if err != nil {
			s.metrics.failed("package", err)
			return
		}
		s.metrics.packageTime.Observe(time.Since(start).Seconds())
		s.metrics.archiveSize.Observe(float64(arc.Size))
	}()

	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	rec, err := s.store.Selected()
	if err != nil {
		return artifact.Archive{}, err
	}

	dir, err := s.gen.Generate(ctx, rec, s.workDir)
	if err != nil {
		// Generate leaves partial output behind.
		os.RemoveAll(filepath.Join(s.workDir, rec.FolderName()))
		return artifact.Archive{}, err
	}

	if err := ctx.Err(); err != nil {
		os.RemoveAll(dir)
		return artifact.Archive{}, err
	}

	return s.pack.Pack(ctx, dir, s.storageDir)
}

// Download packages the current selection and opens the archive for
// streaming. The caller must Close the delivery.
func (s *Service) Download(ctx context.Context) (*artifact.Delivery, error) {
	if err := s.gate.Acquire(ctx, "download"); err != nil {
		s.metrics.failed("download", err)
		return nil, err
	}
	defer s.gate.Release()

	arc, err := s.packageLocked(ctx)
	if err != nil {
		return nil, err
	}

	d, err := s.pack.Deliver(arc.Path, arc.Filename)
	if err != nil {
		s.metrics.failed("download", err)
		return nil, err
	}

	logging.FromContext(ctx).Info("archive delivered", "archive", arc.Filename, "bytes", arc.Size)
	return d, nil
}

// Archive opens a previously packaged archive by file name without
// touching the session. Names that are not plain archive names, and
// archives the janitor has removed, yield artifact.ErrNotFound.
func (s *Service) Archive(ctx context.Context, filename string) (*artifact.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filename != filepath.Base(filename) || !strings.HasSuffix(filename, session.ArchiveSuffix+session.ArchiveExt) {
		return nil, &artifact.Error{Kind: artifact.ErrNotFound, Op: "open", Path: filename}
	}
	return s.pack.Deliver(filepath.Join(s.storageDir, filename), filename)
}

// Summary describes the current session for display.
type Summary struct {
	State      string         `json:"state"`
	FileID     string         `json:"file_id,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	Total      int            `json:"total_users"`
	UploadedAt *time.Time     `json:"uploaded_at,omitempty"`
	Selection  *SelectionInfo `json:"selection,omitempty"`
	Gate       GateStatus     `json:"gate"`
}

// SelectionInfo is the selected part of a Summary.
type SelectionInfo struct {
	Category    string        `json:"category"`
	Rate        int           `json:"open_rate"`
	Stats       session.Stats `json:"stats"`
	ArchiveName string        `json:"archive_name"`
	Filename    string        `json:"zip_filename"`
	SelectedAt  time.Time     `json:"selected_at"`
}

// Session returns a summary of the current session. An empty session is
// not an error.
func (s *Service) Session(ctx context.Context) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	sum := Summary{State: session.StateEmpty.String(), Gate: s.gate.Status()}

	rec, err := s.store.Current()
	if errors.Is(err, session.ErrOutOfOrder) {
		return sum, nil
	}
	if err != nil {
		return Summary{}, err
	}

	uploaded := rec.UploadedAt
	sum.State = rec.State.String()
	sum.FileID = rec.Source.FileID
	sum.Filename = rec.Source.Filename
	sum.Total = rec.Identifiers.Len()
	sum.UploadedAt = &uploaded

	if rec.State == session.StateSelected {
		sum.Selection = &SelectionInfo{
			Category:    rec.Category,
			Rate:        rec.Rate,
			Stats:       rec.Stats,
			ArchiveName: rec.ArchiveName(),
			Filename:    rec.ArchiveName() + session.ArchiveExt,
			SelectedAt:  rec.SelectedAt,
		}
	}
	return sum, nil
}

// GateStatus reports whether a pipeline step is running.
func (s *Service) GateStatus() GateStatus {
	return s.gate.Status()
}

// Drain waits for a running pipeline step and then refuses new ones with
// ErrBusy. Call it once, on shutdown.
func (s *Service) Drain(ctx context.Context) error {
	return s.gate.Drain(ctx)
}

// Sweep runs one janitor pass now.
func (s *Service) Sweep(ctx context.Context) (artifact.SweepResult, error) {
	res, err := s.janitor.Sweep(ctx, time.Now())
	s.recordSweep(res, err)
	return res, err
}

// StartJanitor runs the janitor until ctx is cancelled. It returns at once
// when the sweep is disabled. Run it in its own goroutine.
func (s *Service) StartJanitor(ctx context.Context) {
	if !s.sweepEnabled {
		logging.FromContext(ctx).Info("janitor disabled")
		return
	}
	s.janitor.Run(ctx, s.sweepInterval)
}

func (s *Service) recordSweep(res artifact.SweepResult, err error) {
	if err != nil {
		return
	}
	s.metrics.sweeps.Inc()
	s.metrics.swept.WithLabelValues("archive").Add(float64(res.Archives))
	s.metrics.swept.WithLabelValues("upload").Add(float64(res.Uploads))
	s.metrics.swept.WithLabelValues("work_dir").Add(float64(res.WorkDirs))
}

// cleanFilename keeps only the base name of a client-supplied filename.
func cleanFilename(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" {
		return "", ErrNoFile
	}
	return name, nil
}

// formatOf extracts the declared format from a read error, for metrics.
// Sniffed MIME types are not formats and report as empty.
func formatOf(err error) tabular.Format {
	var te *tabular.Error
	if !errors.As(err, &te) {
		return ""
	}
	if f, perr := tabular.ParseFormat(string(te.Format)); perr == nil {
		return f
	}
	return ""
}

// ctxReader stops a copy when ctx ends.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
