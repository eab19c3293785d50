package videos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shareframe/backend/internal/storage"
)

// ErrUnscopedSweep is returned when no upload folder is configured and the
// sweep was not explicitly widened to the whole bucket.
var ErrUnscopedSweep = errors.New("sweep needs an upload folder; pass --all to sweep the whole bucket")

// KeyIndex reports whether any video still references a storage key.
type KeyIndex interface {
	IsKeyReferenced(ctx context.Context, key string) (bool, error)
}

// SweepConfig controls an orphan sweep.
type SweepConfig struct {
	// Prefix limits the sweep to keys under the upload folder. It is
	// normalized the same way object keys are.
	Prefix string
	// All permits an empty Prefix, sweeping every object in the bucket.
	All bool
	// Grace skips objects younger than this, so uploads whose record is
	// still being written are never removed.
	Grace  time.Duration
	DryRun bool
}

// SweepReport summarises one sweep.
type SweepReport struct {
	Scanned  int
	Orphaned int
	Deleted  int
}

// Sweeper deletes stored objects that no video references.
type Sweeper struct {
	store  storage.ObjectStore
	keys   KeyIndex
	cfg    SweepConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSweeper constructs a sweeper over store.
func NewSweeper(store storage.ObjectStore, keys KeyIndex, cfg SweepConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Prefix = storage.NormalizeFolder(cfg.Prefix); cfg.Prefix != "" {
		cfg.Prefix += "/"
	}
	return &Sweeper{
		store:  store,
		keys:   keys,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Run lists the upload folder, then removes every unreferenced object older
// than the grace period. Candidates are collected before deleting so the
// listing is never mutated mid-page.
func (s *Sweeper) Run(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	if s.cfg.Prefix == "" && !s.cfg.All {
		return report, ErrUnscopedSweep
	}
	cutoff := s.now().Add(-s.cfg.Grace)

	var orphans []string
	err := s.store.List(ctx, s.cfg.Prefix, func(info storage.ObjectInfo) error {
		report.Scanned++
		if !info.LastModified.IsZero() && info.LastModified.After(cutoff) {
			return nil
		}

		referenced, err := s.keys.IsKeyReferenced(ctx, info.Key)
		if err != nil {
			return fmt.Errorf("check key %s: %w", info.Key, err)
		}
		if !referenced {
			orphans = append(orphans, info.Key)
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	report.Orphaned = len(orphans)

	for _, key := range orphans {
		if s.cfg.DryRun {
			s.logger.Info("orphaned object", "key", key)
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Error("delete orphaned object", "key", key, "error", err)
			continue
		}
		s.logger.Info("deleted orphaned object", "key", key)
		report.Deleted++
	}

	s.logger.Info("sweep finished",
		"prefix", s.cfg.Prefix,
		"scanned", report.Scanned,
		"orphaned", report.Orphaned,
		"deleted", report.Deleted,
		"dryRun", s.cfg.DryRun,
	)
	return report, nil
}
