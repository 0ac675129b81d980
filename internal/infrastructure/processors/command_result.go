package processors

import (
	"fmt"
	"strings"
)

// CommandResult is the captured outcome of one external encoder run.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ErrorString is the last stderr line, which is where vips reports the
// failing operation.
func (r *CommandResult) ErrorString() string {
	stderr := strings.TrimSpace(r.Stderr)
	if stderr == "" {
		return fmt.Sprintf("exit code %d without diagnostics", r.ExitCode)
	}
	lines := strings.Split(stderr, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func (r *CommandResult) ExitCodeDescription() string {
	switch r.ExitCode {
	case 0:
		return "success"
	case -1:
		return "encoder did not start or was interrupted"
	case 1:
		return "encoder rejected the operation"
	case 126:
		return "encoder binary is not executable"
	case 127:
		return "encoder binary not found"
	case 137:
		return "encoder killed (SIGKILL), likely out of memory"
	case 143:
		return "encoder terminated (SIGTERM)"
	default:
		return fmt.Sprintf("encoder exited with code %d", r.ExitCode)
	}
}
