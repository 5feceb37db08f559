package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Stage names a step of the apply state machine.
type Stage string

const (
	StageValidate    Stage = "validate"
	StageMoveFiles   Stage = "move"
	StageEditText    Stage = "edit"
	StageBuildVerify Stage = "verify"
	StageDone        Stage = "done"
	// StageFailed is terminal; ApplyResult.FailedStage names the step that failed.
	StageFailed Stage = "failed"
)

// ApplyOptions controls Executor.Apply.
type ApplyOptions struct {
	DryRun         bool
	Backup         bool
	AllowOverwrite bool
	// SkipMoves treats the mapping as already performed on disk.
	SkipMoves bool
	Verify    bool
	// BuildCommand overrides Config.BuildCommand for verification.
	BuildCommand string
	BuildOutput  io.Writer
	// NoJournal keeps the run out of the journal.
	NoJournal bool
}

// FileChange records one rewritten file.
type FileChange struct {
	Path     string // pre-move path
	At       string // location that was written
	Original []byte
	Updated  []byte
}

// ApplyResult describes what Apply did, or would do in a dry run.
type ApplyResult struct {
	Stage       Stage
	FailedStage Stage
	DryRun      bool
	Moved       []Move
	Edited      []FileChange
	Backups     []string
	Verified    bool
	SessionID   int64
	Message     string
}

// fail moves r to StageFailed, remembering the step that was running.
func (r *ApplyResult) fail(err error) (*ApplyResult, error) {
	r.FailedStage = r.Stage
	r.Stage = StageFailed
	r.Message = err.Error()
	return r, err
}

// Executor applies refactor plans to a project root.
type Executor struct {
	Root    string
	Config  Config
	Mover   Mover
	Log     *Logger
	Journal *Journal
	now     func() time.Time
}

// NewExecutor returns an executor for root. A nil mover means plain renames.
func NewExecutor(root string, cfg Config, mover Mover, log *Logger) *Executor {
	if mover == nil {
		mover = FSMover{}
	}
	return &Executor{Root: root, Config: cfg, Mover: mover, Log: log, now: time.Now}
}

// Apply runs Validate -> MoveFiles -> EditText -> BuildVerify. A validation
// error leaves the filesystem untouched. A move failure rolls back every
// completed move. An edit failure restores edited files but keeps the moves.
// A verification failure changes nothing.
func (e *Executor) Apply(ctx context.Context, plan *RefactorPlan, opts ApplyOptions) (*ApplyResult, error) {
	res := &ApplyResult{Stage: StageValidate, DryRun: opts.DryRun}
	if plan == nil {
		plan = &RefactorPlan{}
	}
	if plan.Mapping == nil {
		plan.Mapping = NewMoveMapping()
	}

	// Phase 1: validate.
	if err := e.validate(plan, opts); err != nil {
		return res.fail(err)
	}
	if opts.DryRun {
		e.Log.Logf("Dry run: %d move(s), %d file(s) to edit", plan.Mapping.Len(), countChanged(plan.Files))
	}

	// Phase 2: move files.
	res.Stage = StageMoveFiles
	if !opts.SkipMoves {
		if err := e.moveFiles(ctx, plan.Mapping, opts.DryRun, res); err != nil {
			return res.fail(err)
		}
	}

	// Phase 3: rewrite references.
	res.Stage = StageEditText
	if err := e.editText(plan, opts, res); err != nil {
		return res.fail(err)
	}

	if opts.DryRun {
		res.Stage = StageDone
		res.Message = "dry run: no changes written"
		return res, nil
	}

	if !opts.NoJournal && e.Journal != nil && (len(res.Moved) > 0 || len(res.Edited) > 0) {
		id, err := e.Journal.Record(e.Root, res)
		if err != nil {
			e.Log.Logf("Warning: journal not updated: %v", err)
		} else {
			res.SessionID = id
		}
	}

	// Phase 4: verify.
	if opts.Verify {
		res.Stage = StageBuildVerify
		cmd := opts.BuildCommand
		if cmd == "" {
			cmd = e.Config.BuildCommand
		}
		e.Log.Logf("Verify: %s", cmd)
		out := opts.BuildOutput
		if out == nil {
			out = io.Discard
		}
		if err := RunBuild(ctx, e.Root, cmd, out, out); err != nil {
			e.Log.Logf("Verify failed: %v", err)
			return res.fail(err)
		}
		res.Verified = true
	}

	res.Stage = StageDone
	res.Message = fmt.Sprintf("moved %d file(s), edited %d file(s)", len(res.Moved), len(res.Edited))
	e.Log.Logf("Done: %s", res.Message)
	return res, nil
}

func (e *Executor) validate(plan *RefactorPlan, opts ApplyOptions) error {
	if conflicts := plan.Mapping.Conflicts(); len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	if opts.Verify && opts.BuildCommand == "" && e.Config.BuildCommand == "" {
		return errors.New("verification requested but no build command configured")
	}
	if opts.SkipMoves {
		return nil
	}
	for _, mv := range plan.Mapping.Sorted() {
		if !fileExists(e.abs(mv.Old)) {
			return &MoveFailure{Old: mv.Old, New: mv.New, Err: fmt.Errorf("source not found: %w", os.ErrNotExist)}
		}
		if plan.Mapping.Moved(mv.New) {
			return &DestinationExistsError{Path: mv.New, Reason: "also scheduled to move"}
		}
		if fileExists(e.abs(mv.New)) && !opts.AllowOverwrite {
			return &DestinationExistsError{Path: mv.New}
		}
	}
	return nil
}

func (e *Executor) moveFiles(ctx context.Context, mapping *MoveMapping, dryRun bool, res *ApplyResult) error {
	moves := mapping.Sorted()
	for _, mv := range moves {
		e.Log.Logf("Move: %s -> %s", mv.Old, mv.New)
		if dryRun {
			res.Moved = append(res.Moved, mv)
			continue
		}
		if err := ctx.Err(); err != nil {
			return e.moveFailed(ctx, mv, err, res)
		}
		if err := e.Mover.Move(ctx, e.Root, mv.Old, mv.New); err != nil {
			return e.moveFailed(ctx, mv, err, res)
		}
		res.Moved = append(res.Moved, mv)
	}
	if !dryRun && e.Config.pruneEnabled() {
		olds := make([]string, len(moves))
		for i, mv := range moves {
			olds[i] = mv.Old
		}
		CleanupEmptyDirs(e.Root, olds)
	}
	return nil
}

// moveFailed reverses every completed move, newest first.
func (e *Executor) moveFailed(ctx context.Context, failed Move, cause error, res *ApplyResult) error {
	e.Log.Logf("Move failed: %s -> %s: %v", failed.Old, failed.New, cause)
	var errs []error
	var news []string
	for i := len(res.Moved) - 1; i >= 0; i-- {
		mv := res.Moved[i]
		e.Log.Logf("Rollback: %s -> %s", mv.New, mv.Old)
		if err := e.Mover.Move(context.WithoutCancel(ctx), e.Root, mv.New, mv.Old); err != nil {
			errs = append(errs, fmt.Errorf("%s -> %s: %w", mv.New, mv.Old, err))
			continue
		}
		news = append(news, mv.New)
	}
	CleanupEmptyDirs(e.Root, news)
	res.Moved = nil
	return &MoveFailure{Old: failed.Old, New: failed.New, Err: cause, RollbackErr: errors.Join(errs...)}
}

func (e *Executor) editText(plan *RefactorPlan, opts ApplyOptions, res *ApplyResult) error {
	var store *BackupStore
	if opts.Backup && !opts.DryRun {
		store = NewBackupStore(e.Root, e.Config.BackupDir, e.now())
	}
	var written []rewriteBackup

	fail := func(rel string, err error) error {
		restored := restoreBackups(e.Root, written)
		if store != nil && len(restored) < len(written) {
			// Fall back to the on-disk copies for anything the in-memory pass missed.
			for _, bp := range res.Backups {
				p, rerr := store.Restore(bp)
				if rerr == nil && !slices.Contains(restored, p) {
					restored = append(restored, p)
				}
			}
		}
		for _, r := range restored {
			e.Log.Logf("Restored: %s", r)
		}
		res.Edited = nil
		return &EditApplyFailure{Path: rel, Err: err, Restored: restored}
	}

	for _, f := range plan.Files {
		if !f.HasChanges() {
			continue
		}
		at := e.editTarget(plan.Mapping, f.Path, opts)
		full := e.abs(at)
		info, err := os.Stat(full)
		if err != nil {
			return fail(at, err)
		}
		original, err := os.ReadFile(full)
		if err != nil {
			return fail(at, err)
		}
		updated, err := applyLineEdits(string(original), f.Edits)
		if err != nil {
			return fail(at, err)
		}
		e.Log.Logf("Edit: %s (%d line(s))", at, len(f.Edits))
		change := FileChange{Path: f.Path, At: at, Original: original, Updated: []byte(updated)}
		if opts.DryRun {
			res.Edited = append(res.Edited, change)
			continue
		}
		if store != nil {
			bp, err := store.Save(at, original)
			if err != nil {
				return fail(at, err)
			}
			e.Log.Logf("Backup: %s", bp)
			res.Backups = append(res.Backups, bp)
		}
		perm := info.Mode().Perm()
		written = append(written, rewriteBackup{path: at, content: original, perm: perm})
		if err := writeFilePreservePerm(full, change.Updated, perm); err != nil {
			return fail(at, err)
		}
		res.Edited = append(res.Edited, change)
	}
	return nil
}

// editTarget returns where rel's content lives once the move phase is over.
// A dry run moves nothing, so a file already sitting at the destination is
// never mistaken for the moved one.
func (e *Executor) editTarget(mapping *MoveMapping, rel string, opts ApplyOptions) string {
	at := mapping.Get(rel)
	switch {
	case at == rel:
		return rel
	case opts.SkipMoves:
		if fileExists(e.abs(at)) {
			return at
		}
		return rel
	case opts.DryRun:
		return rel
	}
	return at
}

func (e *Executor) abs(rel string) string {
	return filepath.Join(e.Root, filepath.FromSlash(rel))
}

func countChanged(files []FileEdits) int {
	n := 0
	for _, f := range files {
		if f.HasChanges() {
			n++
		}
	}
	return n
}
