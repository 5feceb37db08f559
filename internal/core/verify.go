package core

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"runtime"
)

// RunBuild runs command through the shell in root. A non-zero exit is
// reported as *BuildVerifyFailure.
func RunBuild(ctx context.Context, root, command string, stdout, stderr io.Writer) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	cmd.Dir = root
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &BuildVerifyFailure{Command: command, ExitCode: exitErr.ExitCode(), Err: err}
		}
		return &BuildVerifyFailure{Command: command, Err: err}
	}
	return nil
}
