package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const gitTimeout = 30 * time.Second

// Mover relocates one file inside the project.
type Mover interface {
	Move(ctx context.Context, root, oldRel, newRel string) error
	Name() string
}

// FSMover renames files directly on the filesystem.
type FSMover struct{}

func (FSMover) Name() string { return "rename" }

func (FSMover) Move(_ context.Context, root, oldRel, newRel string) error {
	dst := filepath.Join(root, filepath.FromSlash(newRel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(filepath.Join(root, filepath.FromSlash(oldRel)), dst)
}

// GitMover moves tracked files with git mv so history follows them.
// Untracked files go through the fallback mover.
type GitMover struct {
	Fallback Mover
}

func (GitMover) Name() string { return "git mv" }

func (g GitMover) Move(ctx context.Context, root, oldRel, newRel string) error {
	if !gitTracked(ctx, root, oldRel) {
		fb := g.Fallback
		if fb == nil {
			fb = FSMover{}
		}
		return fb.Move(ctx, root, oldRel, newRel)
	}
	if err := os.MkdirAll(filepath.Dir(filepath.Join(root, filepath.FromSlash(newRel))), 0o755); err != nil {
		return err
	}
	_, err := runGit(ctx, root, "mv", "-f", "--", oldRel, newRel)
	return err
}

// DetectMover picks a mover for root: "git" forces git mv, "none" forces plain
// renames, and "auto" uses git mv inside a git work tree.
func DetectMover(ctx context.Context, root, vcs string) Mover {
	switch vcs {
	case "git":
		return GitMover{Fallback: FSMover{}}
	case "none":
		return FSMover{}
	}
	if IsGitWorkTree(ctx, root) {
		return GitMover{Fallback: FSMover{}}
	}
	return FSMover{}
}

// IsGitWorkTree reports whether root lies inside a git work tree.
func IsGitWorkTree(ctx context.Context, root string) bool {
	out, err := runGit(ctx, root, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

func gitTracked(ctx context.Context, root, rel string) bool {
	_, err := runGit(ctx, root, "ls-files", "--error-unmatch", "--", rel)
	return err == nil
}

// runGit runs git in dir and returns its stdout. A non-zero exit becomes an
// error carrying git's stderr.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), msg, err)
	}
	return stdout.String(), nil
}
