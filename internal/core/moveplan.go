package core

import (
	"fmt"
	"path/filepath"
	"sort"
)

// MovePlanResult is the outcome of diffing a layout against the tree.
type MovePlanResult struct {
	Mapping  *MoveMapping
	Warnings []string
}

// BuildMovePlan diffs the desired layout against the files in tree.
// File nodes with an origin map exactly; nodes without one fall back to the
// real file with the same basename whose directory depth is closest to the
// desired path (ties broken by sorted order). Files absent from the layout
// stay in place. Conflicting destinations are returned as *ConflictError.
func BuildMovePlan(tree Tree, layout *Layout) (*MovePlanResult, error) {
	byBase := make(map[string][]string)
	for _, rel := range tree.Files() {
		b := baseOf(rel)
		byBase[b] = append(byBase[b], rel)
	}
	for _, cands := range byBase {
		sort.Strings(cands)
	}

	res := &MovePlanResult{Mapping: NewMoveMapping()}
	add := func(oldRel, newRel string) {
		if prev, replaced := res.Mapping.Add(oldRel, newRel); replaced {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s was mapped to %s, now %s", oldRel, prev, newRel))
		}
	}

	layout.WalkFiles(func(id NodeID, desired string) {
		desired = NormalizePath(desired)
		n := layout.nodes[id]
		if n.Origin != "" {
			oldRel, ok := originRel(tree.Root(), n.Origin)
			if !ok {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("origin outside project ignored: %s", n.Origin))
				return
			}
			if !tree.Exists(oldRel) {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("origin not found: %s", oldRel))
				return
			}
			add(oldRel, desired)
			return
		}
		cands := byBase[baseOf(desired)]
		if len(cands) == 0 {
			return
		}
		add(closestByDepth(cands, desired), desired)
	})

	if conflicts := res.Mapping.Conflicts(); len(conflicts) > 0 {
		return res, &ConflictError{Conflicts: conflicts}
	}
	return res, nil
}

// closestByDepth picks the candidate whose directory depth is nearest to
// desired's. cands must be sorted; the first of equally close candidates wins.
func closestByDepth(cands []string, desired string) string {
	want := depthOf(desired)
	best := cands[0]
	bestDist := absInt(depthOf(best) - want)
	for _, c := range cands[1:] {
		if d := absInt(depthOf(c) - want); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func originRel(root, origin string) (string, bool) {
	p := filepath.FromSlash(origin)
	if !filepath.IsAbs(p) {
		rel := NormalizePath(p)
		return rel, !escapesRoot(rel)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", false
	}
	rel = NormalizePath(rel)
	return rel, !escapesRoot(rel)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
