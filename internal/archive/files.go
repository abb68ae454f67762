package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bft-labs/tracejack/internal/format"
	"github.com/bft-labs/tracejack/internal/ports"
)

type inputFile struct {
	path   string
	format format.Format
	mtime  int64
	size   int64
}

// collect expands paths into the list of regular files to index.
// Directories are walked recursively. With a nil hint the format of each
// file is detected from its extension and files of unknown type are
// skipped.
func collect(paths []string, hint *format.Format, logger ports.Logger) ([]inputFile, error) {
	seen := map[string]bool{}
	var out []inputFile

	add := func(p string, info fs.FileInfo) {
		abs, err := filepath.Abs(p)
		if err == nil {
			p = abs
		}
		if seen[p] {
			return
		}
		seen[p] = true

		f := inputFile{path: p, mtime: info.ModTime().UnixNano(), size: info.Size()}
		if hint != nil {
			f.format = *hint
		} else if f.format, err = format.Detect(p); err != nil {
			logger.Debug("skipping file of unknown format", ports.String("path", p))
			return
		}
		out = append(out, f)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root, info)
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			add(p, info)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}
