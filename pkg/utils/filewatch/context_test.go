package filewatch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/co2meal/stratum/pkg/utils/filewatch"
)

func waitDone(t *testing.T, ctx context.Context) bool {
	t.Helper()
	deadlineCh := make(<-chan time.Time)
	if dl, ok := t.Deadline(); ok {
		deadlineCh = time.After(time.Until(dl) - 1*time.Second)
	}
	select {
	case <-ctx.Done():
		return true
	case <-deadlineCh:
		return false
	}
}

func TestUntilModifyContext_FileCreated(t *testing.T) {
	t.Run("when a file is created in a watched directory, it cancels context", func(t *testing.T) {
		dir := t.TempDir()

		ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), dir)
		if err != nil {
			t.Fatal(err)
		}
		defer cancel()

		if err := ctx.Err(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		file := filepath.Join(dir, "file")
		if f, err := os.Create(file); err != nil {
			t.Fatal(err)
		} else {
			f.Close()
		}

		if !waitDone(t, ctx) {
			t.Fatal("context is not canceled")
		}
	})
}

func TestUntilModifyContext_FileWritten(t *testing.T) {
	t.Run("when a watched file is written, it cancels context", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "file")
		if f, err := os.Create(file); err != nil {
			t.Fatal(err)
		} else {
			f.Close()
		}

		ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), file)
		if err != nil {
			t.Fatal(err)
		}
		defer cancel()

		if err := os.WriteFile(file, []byte("content"), 0644); err != nil {
			t.Fatal(err)
		}

		if !waitDone(t, ctx) {
			t.Fatal("context is not canceled")
		}
	})
}

func TestUntilModifyContext_Cancel(t *testing.T) {
	t.Run("cancel function cancels context without cause from files", func(t *testing.T) {
		dir := t.TempDir()

		ctx, cancel, err := filewatch.UntilModifyContext(context.Background(), dir)
		if err != nil {
			t.Fatal(err)
		}
		cancel()

		if !waitDone(t, ctx) {
			t.Fatal("context is not canceled")
		}
	})
}

func TestUntilModifyContext_MissingTarget(t *testing.T) {
	t.Run("watching a missing path is an error", func(t *testing.T) {
		dir := t.TempDir()

		_, _, err := filewatch.UntilModifyContext(
			context.Background(), filepath.Join(dir, "no-such-path"),
		)
		if err == nil {
			t.Fatal("expected error, but got nil")
		}
	})
}
