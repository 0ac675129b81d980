package processors

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/pkg/errors"
	"github.com/histopathai/print-resize-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVips writes a shell script standing in for the vips CLI. It records
// its arguments and copies the intermediate to the requested output.
func fakeVips(t *testing.T, body string) (binary, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	binary = filepath.Join(dir, "vips")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\n" + body + "\n"
	require.NoError(t, os.WriteFile(binary, []byte(script), 0755))
	return binary, argsFile
}

func TestVipsEncoder_PNG(t *testing.T) {
	binary, argsFile := fakeVips(t, `cp "$2" "${3%%\[*}"`)
	enc := NewVipsEncoder(logger.Discard(), binary, 10*time.Second)

	data, err := enc.Encode(context.Background(), gradient(20, 10), model.FormatPNG, 300)
	require.NoError(t, err)

	dpi, ok := PNGPhysDPI(data)
	require.True(t, ok)
	assert.Equal(t, 300, dpi)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(args), "copy "))
	assert.Contains(t, string(args), "output.png[compression=0]")
	assert.Contains(t, string(args), "--xres 11.811024 --yres 11.811024")
}

func TestVipsEncoder_JPEGTarget(t *testing.T) {
	target, err := vipsTarget(model.FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, "[Q=90,subsample-mode=off]", target)

	_, err = vipsTarget(model.OutputFormat("gif"))
	assert.True(t, errors.Is(err, errors.ErrorTypeEncode))
}

func TestVipsEncoder_Failures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		inner errors.ErrorType
	}{
		{"vips error", "echo 'vips2png: unable to write' >&2; exit 1", errors.ErrorTypeProcessing},
		{"binary missing", "exit 127", errors.ErrorTypeConfiguration},
		{"no output", "exit 0", errors.ErrorTypeEncode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binary, _ := fakeVips(t, tt.body)
			enc := NewVipsEncoder(logger.Discard(), binary, 10*time.Second)

			_, err := enc.Encode(context.Background(), gradient(4, 4), model.FormatPNG, 300)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrorTypeEncode), "got %v", err)

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			if inner, ok := appErr.Err.(*errors.AppError); ok {
				assert.Equal(t, tt.inner, inner.Type)
			} else {
				assert.Equal(t, tt.inner, appErr.Type)
			}
		})
	}
}

func TestVipsEncoder_RejectsNonPositiveDPI(t *testing.T) {
	enc := NewVipsEncoder(logger.Discard(), "vips", time.Second)
	_, err := enc.Encode(context.Background(), gradient(2, 2), model.FormatPNG, 0)
	assert.True(t, errors.Is(err, errors.ErrorTypeEncode))
}

func TestCommandResult(t *testing.T) {
	r := &CommandResult{Stderr: "reading input\nvips_copy: bad argument\n", ExitCode: 1}
	assert.Equal(t, "vips_copy: bad argument", r.ErrorString())
	assert.Equal(t, "encoder rejected the operation", r.ExitCodeDescription())

	empty := &CommandResult{ExitCode: 3}
	assert.Equal(t, "exit code 3 without diagnostics", empty.ErrorString())
	assert.Equal(t, "encoder binary not found", (&CommandResult{ExitCode: 127}).ExitCodeDescription())
}
