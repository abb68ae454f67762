package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/output"
	"github.com/bft-labs/tracejack/internal/ports"
	"github.com/bft-labs/tracejack/internal/timeutil"
)

// outputFile is the set of traces resolving to one path.
type outputFile struct {
	path   string
	traces []*domain.Trace
}

func (f outputFile) samples() int {
	var n int
	for _, tr := range f.traces {
		n += tr.Len()
	}
	return n
}

// partition groups traces by resolved output path, in first-seen order.
func partition(tpl *output.Template, traces []*domain.Trace) []outputFile {
	var files []outputFile
	at := map[string]int{}
	for _, tr := range traces {
		path := tpl.Expand(tr)
		i, ok := at[path]
		if !ok {
			i = len(files)
			at[path] = i
			files = append(files, outputFile{path: path})
		}
		files[i].traces = append(files[i].traces, tr)
	}
	return files
}

// write stores the traces of one batch. The first failing file ends the
// run; files written before stay on disk.
func (p *Pipeline) write(ctx context.Context, traces []*domain.Trace, s *Summary) error {
	for _, f := range partition(p.config.Template, traces) {
		if p.config.SingleTrace && len(f.traces) > 1 {
			return fmt.Errorf("%d traces resolve to %s but the output format holds one trace per file, add %%(tmin)s to the output template: %w",
				len(f.traces), f.path, domain.ErrWrite)
		}
		if err := p.writer.Write(ctx, f.path, f.traces); err != nil {
			if !errors.Is(err, domain.ErrWrite) {
				err = fmt.Errorf("write %s: %w: %w", f.path, domain.ErrWrite, err)
			}
			return err
		}

		n := f.samples()
		s.Files++
		s.Samples += n
		p.metrics.Written(n)
		p.logger.Info("wrote file",
			ports.String("path", f.path),
			ports.Int("traces", len(f.traces)),
			ports.Int("samples", n),
		)
	}
	return nil
}

func formatTime(t float64) string {
	return timeutil.FormatTime(t, 3)
}
