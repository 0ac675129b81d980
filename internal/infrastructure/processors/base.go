package processors

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/histopathai/print-resize-service/pkg/errors"
)

// BaseProcessor provides common functionality for CLI-based processors
type BaseProcessor struct {
	logger     *slog.Logger
	binaryName string
}

// NewBaseProcessor creates a new base processor instance
func NewBaseProcessor(logger *slog.Logger, binaryName string) *BaseProcessor {
	return &BaseProcessor{
		logger:     logger,
		binaryName: binaryName,
	}
}

func (p *BaseProcessor) BinaryName() string {
	return p.binaryName
}

// VerifyBinary checks if the binary exists in system PATH
func (p *BaseProcessor) VerifyBinary() error {
	_, err := exec.LookPath(p.binaryName)
	if err != nil {
		return errors.NewConfigurationError("executable not found in PATH").
			WithContext("binary", p.binaryName)
	}
	return nil
}

func (p *BaseProcessor) Execute(ctx context.Context, args []string, timeout time.Duration) (*CommandResult, error) {
	if timeout <= 0 {
		return nil, errors.NewValidationError("timeout must be positive").
			WithContext("timeout", timeout.String())
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binaryName, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logCommandStart(args, timeout)

	err := cmd.Run()

	return p.handleCommandResult(ctx, stdout, stderr, err, timeout)
}

func (p *BaseProcessor) handleCommandResult(ctx context.Context, stdout, stderr bytes.Buffer, err error, timeout time.Duration) (*CommandResult, error) {
	result := p.createResult(stdout, stderr, err)

	// Check context errors first
	if ctx.Err() == context.DeadlineExceeded {
		p.logError("command timed out",
			"binary", p.binaryName,
			"exit_code", result.ExitCode,
			"timeout", timeout.String(),
			"stderr", result.Stderr,
		)
		return result, errors.WrapTimeoutError(err, fmt.Sprintf("command timed out after %s", timeout)).
			WithContext("binary", p.binaryName).
			WithContext("exit_code", result.ExitCode).
			WithContext("stderr", result.Stderr)
	}

	if ctx.Err() == context.Canceled {
		return result, errors.New(errors.ErrorTypeCancellation, "command execution canceled").
			WithContext("binary", p.binaryName).
			WithContext("exit_code", result.ExitCode)
	}

	if err != nil {
		return result, p.categorizeCommandError(result, err)
	}

	return result, nil
}

func (p *BaseProcessor) categorizeCommandError(result *CommandResult, err error) error {
	exitCode := result.ExitCode
	stderr := result.Stderr

	p.logError("command failed",
		"binary", p.binaryName,
		"exit_code", exitCode,
		"description", result.ExitCodeDescription(),
		"stderr", stderr,
	)

	switch exitCode {
	case 126, 127:
		// Missing or non-executable binary is a deployment problem
		return errors.NewConfigurationError(result.ExitCodeDescription()).
			WithContext("binary", p.binaryName).
			WithContext("exit_code", exitCode).
			WithContext("stderr", stderr)

	case 137, 143:
		return errors.WrapProcessingError(err, "command was killed, possibly due to resource limits").
			WithContext("binary", p.binaryName).
			WithContext("exit_code", exitCode).
			WithContext("stderr", stderr)

	default:
		return errors.WrapProcessingError(err, fmt.Sprintf("command failed with exit code %d", exitCode)).
			WithContext("binary", p.binaryName).
			WithContext("exit_code", exitCode).
			WithContext("stderr", result.ErrorString())
	}
}

func (p *BaseProcessor) createResult(stdout, stderr bytes.Buffer, err error) *CommandResult {
	result := &CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
	} else if err == nil {
		result.ExitCode = 0
	} else {
		result.ExitCode = -1
	}

	return result
}

func (p *BaseProcessor) logCommandStart(args []string, timeout time.Duration) {
	if p.logger != nil {
		p.logger.Debug("executing command",
			"binary", p.binaryName,
			"args", args,
			"timeout", timeout.String(),
		)
	}
}

func (p *BaseProcessor) logError(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
