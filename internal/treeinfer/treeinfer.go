// Package treeinfer invokes the external tree-inference tool once per
// window file. What the tool writes is its own business; the pipeline's
// responsibility ends at the invocation.
package treeinfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"coalseq/internal/toolexec"
)

// Runner holds the inference tool's configuration.
type Runner struct {
	Path    string
	Timeout time.Duration
	Log     *logrus.Logger
}

type windowFile struct {
	num  int
	path string
}

// windowFiles lists {num}_{start}_{end}.fa files sorted by window number.
func windowFiles(dir string) ([]windowFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []windowFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".fa") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".fa")
		parts := strings.Split(stem, "_")
		if len(parts) != 3 {
			continue
		}
		num, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		out = append(out, windowFile{num: num, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].num < out[j].num })
	return out, nil
}

// InferAll runs the tool over every window file under dir, in window order.
func (r *Runner) InferAll(ctx context.Context, dir string) error {
	files, err := windowFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no window files under %s", dir)
	}
	for _, wf := range files {
		if err := toolexec.Run(ctx, r.Timeout, r.Path, []string{wf.path}, nil, io.Discard); err != nil {
			return fmt.Errorf("window %d: %w", wf.num, err)
		}
		if r.Log != nil {
			r.Log.WithFields(logrus.Fields{"window": wf.num}).Debug("tree inferred")
		}
	}
	if r.Log != nil {
		r.Log.WithFields(logrus.Fields{"stage": "infer", "windows": len(files)}).Info("window trees inferred")
	}
	return nil
}
