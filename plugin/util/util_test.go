package util

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	reg "github.com/Gthulhu/scx_serverless/plugin/internal/registry"
)

// TestReadPidMax verifies the pid_max file is parsed with surrounding whitespace
func TestReadPidMax(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("Valid", func(t *testing.T) {
		got, err := ReadPidMax(write("ok", "4194304\n"))
		if err != nil {
			t.Fatalf("ReadPidMax() error = %v", err)
		}
		if got != 4194304 {
			t.Errorf("ReadPidMax() = %d; want 4194304", got)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := ReadPidMax(filepath.Join(dir, "missing")); err == nil {
			t.Error("ReadPidMax() expected error for a missing file")
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := ReadPidMax(write("bad", "lots\n")); err == nil {
			t.Error("ReadPidMax() expected error for non-numeric content")
		}
	})

	t.Run("EmptyPathUsesConfigDefault", func(t *testing.T) {
		want, err := os.ReadFile(reg.DefaultPidMaxPath)
		if err != nil {
			t.Skipf("%s not readable: %v", reg.DefaultPidMaxPath, err)
		}
		got, err := ReadPidMax("")
		if err != nil {
			t.Fatalf("ReadPidMax() error = %v", err)
		}
		if strconv.Itoa(got) != strings.TrimSpace(string(want)) {
			t.Errorf("ReadPidMax() = %d; want %s", got, want)
		}
	})

	t.Run("Zero", func(t *testing.T) {
		if _, err := ReadPidMax(write("zero", "0\n")); err == nil {
			t.Error("ReadPidMax() expected error for zero")
		}
	})
}

func TestNow(t *testing.T) {
	before := uint64(time.Now().UnixNano())
	now := Now()
	if now < before {
		t.Errorf("Now() = %d; want >= %d", now, before)
	}
}
