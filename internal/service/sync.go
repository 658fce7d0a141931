package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/stevelr/kv-assets/internal/assets"
	"github.com/stevelr/kv-assets/internal/journal"
	"github.com/stevelr/kv-assets/internal/kv"
	"github.com/stevelr/kv-assets/internal/logging"
	"github.com/stevelr/kv-assets/internal/scan"
)

// Sync scans the asset directory, rebuilds and persists the index
// artifact, uploads new or changed blobs, and optionally prunes storage
// keys no scanned file references anymore. Pruning should only be
// requested after the serving side has picked up the new artifact;
// deleting a key before then breaks requests resolved through the old
// index.
func (s *Service) Sync(ctx context.Context, prune bool) error {
	info, err := os.Stat(s.cfg.AssetDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("asset path '%s' is not a directory", s.cfg.AssetDir)
	}

	scanned, err := scan.Scan(s.cfg.AssetDir)
	if err != nil {
		return err
	}
	logging.Debugf("Scanned %d files in '%s'", len(scanned), s.cfg.AssetDir)

	previous, err := os.ReadFile(s.cfg.Output)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		previous = nil
	case err != nil:
		return fmt.Errorf("could not read previous artifact '%s': %w", s.cfg.Output, err)
	}

	var prevIndex assets.AssetIndex
	if previous != nil {
		prevIndex, err = assets.Decode(previous)
		if err != nil {
			logging.Warnf("Previous artifact '%s' is unreadable, uploading all assets: %s", s.cfg.Output, err)
			prevIndex = nil
		}
	}

	plan := scan.Diff(scanned, prevIndex)
	index, err := assets.Build(s.cfg.AssetDir, plan.Entries)
	if err != nil {
		return err
	}
	outcome, err := assets.WriteArtifact(s.cfg.Output, index, previous)
	if err != nil {
		return err
	}
	switch outcome {
	case assets.OutcomeNew:
		logging.Infof("Generated asset manifest %s", s.cfg.Output)
	case assets.OutcomeUpdated:
		logging.Infof("Updated asset manifest %s", s.cfg.Output)
	case assets.OutcomeNoChange:
		logging.Infof("No change to asset manifest %s", s.cfg.Output)
	}

	if len(plan.Upload) > 0 {
		if err = s.uploadAssets(ctx, plan.Upload); err != nil {
			return err
		}
	}

	stale := s.staleKeys(ctx, plan)
	if len(stale) > 0 {
		if prune {
			if err = s.pruneAssets(ctx, stale); err != nil {
				return err
			}
		} else {
			s.deferDeletes(ctx, stale)
			logging.Infof("Deferred pruning [%d] stale files. Run with '--prune' later to remove them.", len(stale))
		}
	}
	return nil
}

// staleKeys merges the plan's deletions with deletions deferred by
// earlier runs, dropping any key the current scan references again
// (a file reverted to old content reuses its old fingerprint key).
func (s *Service) staleKeys(ctx context.Context, plan scan.Plan) []string {
	wanted := make(map[string]struct{}, len(plan.Entries))
	for _, entry := range plan.Entries {
		wanted[entry.StorageKey] = struct{}{}
	}

	stale := make(map[string]struct{}, len(plan.Delete))
	for _, key := range plan.Delete {
		stale[key] = struct{}{}
	}
	var rewanted []string
	if j := s.openJournal(ctx); j != nil {
		defer j.Close()
		pending, err := j.PendingDeletes(ctx)
		if err != nil {
			logging.Warnf("Could not read pending deletions: %s", err)
		}
		for _, key := range pending {
			if _, ok := wanted[key]; ok {
				rewanted = append(rewanted, key)
			} else {
				stale[key] = struct{}{}
			}
		}
		if len(rewanted) > 0 {
			if err = j.ClearPendingDeletes(ctx, rewanted); err != nil {
				logging.Warnf("Could not clear pending deletions: %s", err)
			}
		}
	}

	keys := make([]string, 0, len(stale))
	for key := range stale {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Service) deferDeletes(ctx context.Context, keys []string) {
	j := s.openJournal(ctx)
	if j == nil {
		return
	}
	defer j.Close()
	if err := j.AddPendingDeletes(ctx, keys); err != nil {
		logging.Warnf("Could not record pending deletions: %s", err)
	}
}

func (s *Service) uploadAssets(ctx context.Context, entries []assets.Entry) error {
	pairs := make([]kv.KeyValue, 0, len(entries))
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(s.cfg.AssetDir, filepath.FromSlash(entry.LogicalPath)))
		if err != nil {
			return &assets.MissingFileError{Path: entry.LogicalPath, Err: err}
		}
		pairs = append(pairs, kv.KeyValue{Key: entry.StorageKey, Value: data})
	}

	logging.Infof("Uploading %d site files", len(pairs))
	result := s.client.PutBulk(ctx, pairs, 0, s.progress("upload", len(pairs)))
	s.record(ctx, "put", result)
	for _, failed := range result.Failed {
		logging.Error(fmt.Sprintf("Upload of key '%s' failed", failed.Key), failed.Err)
	}
	if !result.OK() {
		return fmt.Errorf("%d of %d uploads failed", len(result.Failed), len(pairs))
	}
	return nil
}

func (s *Service) pruneAssets(ctx context.Context, keys []string) error {
	logging.Infof("Pruning %d stale files", len(keys))
	result := s.client.DeleteBulk(ctx, keys, s.progress("delete", len(keys)))
	s.record(ctx, "delete", result)
	if j := s.openJournal(ctx); j != nil {
		if err := j.ClearPendingDeletes(ctx, result.Succeeded); err != nil {
			logging.Warnf("Could not clear pending deletions: %s", err)
		}
		j.Close()
	}
	for _, failed := range result.Failed {
		logging.Error(fmt.Sprintf("Deletion of key '%s' failed", failed.Key), failed.Err)
	}
	if !result.OK() {
		return fmt.Errorf("%d of %d deletions failed", len(result.Failed), len(keys))
	}
	return nil
}

// progress returns a per-key progress callback for runs large enough to
// warrant one, nil otherwise.
func (s *Service) progress(op string, total int) kv.Progress {
	if total <= kv.BatchKeyMax {
		return nil
	}
	return func(done, total int) {
		if done%1000 == 0 || done == total {
			logging.Infof("%s progress: %d/%d", op, done, total)
		}
	}
}

// record journals bulk outcomes. Best-effort: a journal failure is
// logged and never fails the sync.
func (s *Service) record(ctx context.Context, op string, result kv.BulkResult) {
	entries := make([]journal.Entry, 0, len(result.Succeeded)+len(result.Failed))
	for _, key := range result.Succeeded {
		entries = append(entries, journal.Entry{Key: key, Op: op, OK: true})
	}
	for _, failed := range result.Failed {
		entries = append(entries, journal.Entry{Key: failed.Key, Op: op, OK: false, Detail: failed.Err.Error()})
	}

	j := s.openJournal(ctx)
	if j == nil {
		return
	}
	defer j.Close()
	if err := j.Record(ctx, entries); err != nil {
		logging.Warnf("Could not record sync journal entries: %s", err)
	}
}

func (s *Service) openJournal(ctx context.Context) *journal.Journal {
	j, err := journal.Open(ctx, s.journalPath)
	if err != nil {
		logging.Warnf("Could not open sync journal: %s", err)
		return nil
	}
	return j
}
