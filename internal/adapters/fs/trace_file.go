package fs

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/format"
)

const filePerm = 0o644

// TraceFileWriter implements ports.TraceWriter on the local file system.
type TraceFileWriter struct {
	codec format.Codec
}

// NewTraceFileWriter creates a writer encoding files with codec.
func NewTraceFileWriter(codec format.Codec) *TraceFileWriter {
	return &TraceFileWriter{codec: codec}
}

// Write encodes traces into the file at path.
// The target directory must exist. Uses atomic write (write to temp file in
// the same directory, then rename) so a partial file is never visible under
// path. An existing file at path is replaced.
func (w *TraceFileWriter) Write(ctx context.Context, path string, traces []*domain.Trace) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("write %s: %w: %w", path, domain.ErrWrite, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("write %s: %s is not a directory: %w", path, dir, domain.ErrWrite)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w: %w", path, domain.ErrWrite, err)
	}

	if err := w.writeTmp(tmp, traces); err != nil {
		err = multierr.Append(err, os.Remove(tmp.Name()))
		return fmt.Errorf("write %s: %w: %w", path, domain.ErrWrite, err)
	}

	// Atomic rename
	if err := os.Rename(tmp.Name(), path); err != nil {
		err = multierr.Append(err, os.Remove(tmp.Name()))
		return fmt.Errorf("write %s: %w: %w", path, domain.ErrWrite, err)
	}
	return nil
}

func (w *TraceFileWriter) writeTmp(f *os.File, traces []*domain.Trace) (err error) {
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	bw := bufio.NewWriter(f)
	if err := w.codec.Encode(bw, traces); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := f.Chmod(filePerm); err != nil {
		return err
	}
	return f.Sync()
}
