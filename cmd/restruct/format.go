package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/ryotapoi/restruct/internal/core"
)

// maxPreviewLines caps the per-file output of a text preview.
const maxPreviewLines = 200

// validateFormat checks that format is "json" or "text".
func validateFormat(format string) error {
	if format != "json" && format != "text" {
		return fmt.Errorf("invalid format: %q (must be json or text)", format)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Plan output ---

type jsonPlan struct {
	Moves    []core.Move      `json:"moves"`
	Files    []core.FileEdits `json:"files"`
	Warnings []string         `json:"warnings"`
}

func toJSONPlan(p *core.RefactorPlan) jsonPlan {
	out := jsonPlan{
		Moves:    p.Mapping.Sorted(),
		Files:    []core.FileEdits{},
		Warnings: p.Warnings,
	}
	if out.Moves == nil {
		out.Moves = []core.Move{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	for _, f := range p.Files {
		if f.HasChanges() {
			out.Files = append(out.Files, f)
		}
	}
	return out
}

func printPlanJSON(w io.Writer, p *core.RefactorPlan) error {
	return writeJSON(w, toJSONPlan(p))
}

func printPlanText(w io.Writer, p *core.RefactorPlan) {
	if p.IsEmpty() {
		fmt.Fprintln(w, "Nothing to do: the tree already matches the layout.")
		writeWarnings(w, p.Warnings)
		return
	}
	moves := p.Mapping.Sorted()
	fmt.Fprintf(w, "Moves (%d):\n", len(moves))
	for _, mv := range moves {
		fmt.Fprintf(w, "  %s -> %s\n", mv.Old, mv.New)
	}
	files, lines := p.EditCount()
	fmt.Fprintf(w, "Edits (%d file(s), %d line(s)):\n", files, lines)
	for _, f := range p.Files {
		if !f.HasChanges() {
			continue
		}
		fmt.Fprintf(w, "  %s\n", f.Path)
		writeFileEdits(w, f.Edits)
	}
	writeWarnings(w, p.Warnings)
}

func writeFileEdits(w io.Writer, edits []core.TextEdit) {
	printed := 0
	for i, e := range edits {
		n := 1 + len(e.New)
		if printed+n > maxPreviewLines {
			fmt.Fprintf(w, "    ... (%d more edit(s))\n", len(edits)-i)
			return
		}
		fmt.Fprintf(w, "    %d: - %s\n", e.Line, e.Old)
		if len(e.New) == 0 {
			fmt.Fprintf(w, "    %*s  (deleted)\n", digits(e.Line), "")
		}
		for _, nl := range e.New {
			fmt.Fprintf(w, "    %*s  + %s\n", digits(e.Line), "", nl)
		}
		printed += n
	}
}

func digits(n int) int {
	return len(fmt.Sprint(n))
}

func writeWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "Warnings (%d):\n", len(warnings))
	for _, msg := range warnings {
		fmt.Fprintf(w, "  %s\n", msg)
	}
}

// --- Apply output ---

type jsonApply struct {
	Stage       string      `json:"stage"`
	FailedStage string      `json:"failed_stage,omitempty"`
	DryRun      bool        `json:"dry_run"`
	Moved       []core.Move `json:"moved"`
	Edited      []string    `json:"edited"`
	Backups     []string    `json:"backups"`
	Verified    bool        `json:"verified"`
	SessionID   int64       `json:"session_id,omitempty"`
	Message     string      `json:"message"`
}

func printApplyJSON(w io.Writer, r *core.ApplyResult) error {
	out := jsonApply{
		Stage:       string(r.Stage),
		FailedStage: string(r.FailedStage),
		DryRun:      r.DryRun,
		Moved:       r.Moved,
		Edited:      []string{},
		Backups:     r.Backups,
		Verified:    r.Verified,
		SessionID:   r.SessionID,
		Message:     r.Message,
	}
	if out.Moved == nil {
		out.Moved = []core.Move{}
	}
	if out.Backups == nil {
		out.Backups = []string{}
	}
	for _, c := range r.Edited {
		out.Edited = append(out.Edited, c.At)
	}
	return writeJSON(w, out)
}

func printApplyText(w io.Writer, r *core.ApplyResult) {
	if r.DryRun {
		fmt.Fprintf(w, "dry run: would move %d file(s) and edit %d file(s)\n", len(r.Moved), len(r.Edited))
		return
	}
	fmt.Fprintf(w, "moved %d file(s), edited %d file(s)\n", len(r.Moved), len(r.Edited))
	if len(r.Backups) > 0 {
		fmt.Fprintf(w, "backups (%d):\n", len(r.Backups))
		for _, b := range r.Backups {
			if info, err := os.Stat(b); err == nil {
				fmt.Fprintf(w, "  %s (%s)\n", b, humanize.Bytes(uint64(info.Size())))
			} else {
				fmt.Fprintf(w, "  %s\n", b)
			}
		}
	}
	if r.Verified {
		fmt.Fprintln(w, "build verified")
	}
	if r.SessionID > 0 {
		fmt.Fprintf(w, "session %d recorded; run 'restruct revert' to undo\n", r.SessionID)
	}
}

// --- Revert output ---

func printRevertText(w io.Writer, r *core.RevertResult) {
	verb := "reverted"
	if r.DryRun {
		verb = "would revert"
	}
	fmt.Fprintf(w, "%s session %d: %d move(s), %d file(s) restored\n", verb, r.Session.ID, len(r.Moved), len(r.Restored))
}

// --- History output ---

type jsonSession struct {
	ID        int64       `json:"id"`
	StartedAt string      `json:"started_at"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Reverted  bool        `json:"reverted"`
	Moves     []core.Move `json:"moves"`
}

func printHistoryJSON(w io.Writer, sessions []core.Session) error {
	out := make([]jsonSession, 0, len(sessions))
	for _, s := range sessions {
		moves := s.Moves
		if moves == nil {
			moves = []core.Move{}
		}
		out = append(out, jsonSession{
			ID:        s.ID,
			StartedAt: s.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Status:    s.Status,
			Message:   s.Message,
			Reverted:  s.Reverted,
			Moves:     moves,
		})
	}
	return writeJSON(w, out)
}

func printHistoryText(w io.Writer, sessions []core.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "#%d  %-8s  %s  %s\n", s.ID, s.Status, humanize.Time(s.StartedAt), s.Message)
	}
}
