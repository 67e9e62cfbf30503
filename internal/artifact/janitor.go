package artifact

// janitor.go removes expired artifacts so the single-session service does
// not accumulate archives and spool files forever.
//
// Three locations are swept:
//  1. storage: *.zip archives (and abandoned .pack-* temp files)
//  2. uploads: spooled identifier files
//  3. work: leftover {timestamp}_{category} directories from an interrupted Pack
//
// Individual removal failures are logged and counted but never stop a sweep.

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultRetention is how long artifacts are kept when no retention is configured.
const DefaultRetention = 30 * 24 * time.Hour

// DefaultSweepInterval is the Run period when none is given.
const DefaultSweepInterval = time.Hour

// workDirPattern matches artifact directory names created by Generate.
var workDirPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}_.+`)

// Janitor deletes artifacts older than Retention.
type Janitor struct {
	StorageDir string
	UploadsDir string
	WorkDir    string
	Retention  time.Duration

	// OnSweep, if set, is called after every sweep Run performs.
	OnSweep func(SweepResult, error)
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Archives int `json:"archives"`
	Uploads  int `json:"uploads"`
	WorkDirs int `json:"work_dirs"`
	Failed   int `json:"failed"`
}

// Removed is the total number of entries deleted.
func (r SweepResult) Removed() int { return r.Archives + r.Uploads + r.WorkDirs }

// Sweep removes everything older than now minus the retention. Missing
// directories are skipped.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	retention := j.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := now.Add(-retention)

	var res SweepResult

	if j.StorageDir != "" {
		n, failed, err := sweepDir(ctx, j.StorageDir, cutoff, func(e os.DirEntry) bool {
			return e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".zip")
		})
		res.Archives, res.Failed = n, res.Failed+failed
		if err != nil {
			return res, err
		}
	}

	if j.UploadsDir != "" {
		n, failed, err := sweepDir(ctx, j.UploadsDir, cutoff, func(e os.DirEntry) bool {
			return e.Type().IsRegular()
		})
		res.Uploads, res.Failed = n, res.Failed+failed
		if err != nil {
			return res, err
		}
	}

	if j.WorkDir != "" {
		n, failed, err := sweepDir(ctx, j.WorkDir, cutoff, func(e os.DirEntry) bool {
			return e.IsDir() && workDirPattern.MatchString(e.Name())
		})
		res.WorkDirs, res.Failed = n, res.Failed+failed
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

// sweepDir removes the entries of dir accepted by match whose modification
// time is before cutoff. It returns removed and failed counts.
func sweepDir(ctx context.Context, dir string, cutoff time.Time, match func(os.DirEntry) bool) (int, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	var removed, failed int
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, failed, err
		}
		if !match(e) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("janitor failed to remove", "path", path, "error", err)
			failed++
			continue
		}
		removed++
	}
	return removed, failed, nil
}

// Run sweeps immediately, then every interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	slog.Info("janitor started",
		"storage_dir", j.StorageDir,
		"uploads_dir", j.UploadsDir,
		"retention", j.Retention.String(),
		"interval", interval.String(),
	)

	j.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("janitor stopped")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *Janitor) runOnce(ctx context.Context) {
	start := time.Now()
	res, err := j.Sweep(ctx, start)
	if j.OnSweep != nil {
		j.OnSweep(res, err)
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("janitor sweep failed", "error", err)
		return
	}
	slog.Info("janitor sweep completed",
		"archives_removed", res.Archives,
		"uploads_removed", res.Uploads,
		"work_dirs_removed", res.WorkDirs,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
