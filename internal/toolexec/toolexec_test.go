package toolexec

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesStdout(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), time.Minute, "echo", []string{"hello"}, nil, &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "hello" {
		t.Fatalf("stdout = %q, want %q", got, "hello")
	}
}

func TestRunFeedsStdin(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), time.Minute, "cat", nil, strings.NewReader("ping"), &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "ping" {
		t.Fatalf("stdout = %q, want %q", out.String(), "ping")
	}
}

func TestRunTimeout(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), 50*time.Millisecond, "sleep", []string{"1"}, nil, &out)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestRunFoldsStderrIntoError(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), time.Minute, "sh", []string{"-c", "echo boom >&2; exit 3"}, nil, &out)
	if err == nil {
		t.Fatal("want error for exit 3")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v, want stderr text included", err)
	}
}
