package core

import (
	"context"
	"strconv"
	"strings"
)

// DetectStagedMoves reads renames staged in the git index under root. root
// may be a subdirectory of the work tree; paths come back relative to root
// and renames leaving or entering it are skipped.
func DetectStagedMoves(ctx context.Context, root string) (*MoveMapping, error) {
	prefix, err := runGit(ctx, root, "rev-parse", "--show-prefix")
	if err != nil {
		return nil, err
	}
	out, err := runGit(ctx, root, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	m := NewMoveMapping()
	for _, mv := range underPrefix(parseStagedRenames(out), strings.TrimSpace(prefix)) {
		m.Add(mv.Old, mv.New)
	}
	return m, nil
}

// underPrefix keeps the moves whose both ends lie under prefix, a
// slash-terminated work-tree path, and strips it.
func underPrefix(moves []Move, prefix string) []Move {
	if prefix == "" {
		return moves
	}
	var out []Move
	for _, mv := range moves {
		o, okOld := strings.CutPrefix(mv.Old, prefix)
		n, okNew := strings.CutPrefix(mv.New, prefix)
		if okOld && okNew {
			out = append(out, Move{Old: o, New: n})
		}
	}
	return out
}

// parseStagedRenames extracts "R  old -> new" entries from porcelain v1 output.
func parseStagedRenames(out string) []Move {
	var moves []Move
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 4 || line[0] != 'R' {
			continue
		}
		oldPath, newPath, ok := strings.Cut(line[3:], " -> ")
		if !ok {
			continue
		}
		moves = append(moves, Move{Old: unquoteGitPath(oldPath), New: unquoteGitPath(newPath)})
	}
	return moves
}

func unquoteGitPath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		if s, err := strconv.Unquote(p); err == nil {
			return s
		}
	}
	return p
}

// StagedOptions controls ApplyStaged.
type StagedOptions struct {
	// UpdateRefs keeps the staged moves and rewrites references to match.
	// Otherwise the moves are reverted.
	UpdateRefs bool
	// DescriptorsOnly limits UpdateRefs to build descriptor files.
	DescriptorsOnly bool
	DryRun          bool
	Backup          bool
}

// ApplyStaged handles renames already staged in git. In revert mode the
// files go back to their old paths. In update mode the moves stay and
// references are rewritten as if the moves had been planned.
func ApplyStaged(ctx context.Context, e *Executor, mapping *MoveMapping, opts StagedOptions) (*RefactorPlan, *ApplyResult, error) {
	if !opts.UpdateRefs {
		plan := &RefactorPlan{Mapping: mapping.Inverse()}
		res, err := e.Apply(ctx, plan, ApplyOptions{DryRun: opts.DryRun, NoJournal: true})
		return plan, res, err
	}

	base, err := NewOSTree(e.Root, e.Config)
	if err != nil {
		return nil, nil, err
	}
	plan, err := PlanForMapping(NewPremoveTree(base, mapping), e.Config, mapping, PlanOptions{DescriptorsOnly: opts.DescriptorsOnly})
	if err != nil {
		return plan, nil, err
	}
	res, err := e.Apply(ctx, plan, ApplyOptions{DryRun: opts.DryRun, Backup: opts.Backup, SkipMoves: true})
	return plan, res, err
}
