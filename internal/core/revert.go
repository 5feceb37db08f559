package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// RevertOptions controls Revert.
type RevertOptions struct {
	DryRun bool
	// Force restores files even if they changed after the apply.
	Force bool
}

// RevertResult describes an undone session.
type RevertResult struct {
	Session  *Session
	Moved    []Move
	Restored []string
	DryRun   bool
}

// Revert undoes the newest un-reverted journal session: moves are inverted
// and every rewritten file gets its original content back.
func Revert(ctx context.Context, e *Executor, j *Journal, opts RevertOptions) (*RevertResult, error) {
	s, err := j.Latest()
	if err != nil {
		return nil, err
	}
	res := &RevertResult{Session: s, DryRun: opts.DryRun}

	for _, f := range s.Files {
		data, err := os.ReadFile(e.abs(f.At))
		if err != nil {
			return res, &ReadError{Path: f.At, Err: err}
		}
		if contentHash(data) != f.AppliedSHA && !opts.Force {
			return res, fmt.Errorf("%s changed since session %d was applied (use --force to restore anyway)", f.At, s.ID)
		}
	}

	inverse := NewMoveMapping()
	for _, mv := range s.Moves {
		inverse.Add(mv.New, mv.Old)
	}
	e.Log.Logf("Revert session %d: %d move(s), %d file(s)", s.ID, inverse.Len(), len(s.Files))
	applied, err := e.Apply(ctx, &RefactorPlan{Mapping: inverse}, ApplyOptions{DryRun: opts.DryRun, NoJournal: true})
	if applied != nil {
		res.Moved = applied.Moved
	}
	if err != nil {
		return res, err
	}

	for _, f := range s.Files {
		at := inverse.Get(f.At)
		e.Log.Logf("Restore: %s", at)
		if opts.DryRun {
			res.Restored = append(res.Restored, at)
			continue
		}
		full := e.abs(at)
		perm := os.FileMode(0o644)
		if info, err := os.Stat(full); err == nil {
			perm = info.Mode().Perm()
		} else if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return res, &EditApplyFailure{Path: at, Err: err, Restored: res.Restored}
		}
		if err := writeFilePreservePerm(full, f.Original, perm); err != nil {
			return res, &EditApplyFailure{Path: at, Err: err, Restored: res.Restored}
		}
		res.Restored = append(res.Restored, at)
	}

	if opts.DryRun {
		return res, nil
	}
	if err := j.MarkReverted(s.ID); err != nil {
		return res, err
	}
	e.Log.Logf("Reverted session %d", s.ID)
	return res, nil
}
