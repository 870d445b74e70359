// Package toolexec is the single choke point for the pipeline's external
// tools: every invocation runs under an explicit timeout with uniform error
// reporting.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout reports an external tool exceeding its allotted wall time.
var ErrTimeout = errors.New("external tool timed out")

// DefaultTimeout bounds a single invocation when the caller sets none.
const DefaultTimeout = 10 * time.Minute

// Run executes name with args, feeding stdin (may be nil) and streaming
// stdout to out. Stderr is captured and folded into any error.
func Run(ctx context.Context, timeout time.Duration, name string, args []string, stdin io.Reader, out io.Writer) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = out
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, name, timeout)
	}
	if msg := strings.TrimSpace(errBuf.String()); msg != "" {
		return fmt.Errorf("%s: %v: %s", name, err, msg)
	}
	return fmt.Errorf("%s: %v", name, err)
}
