package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	reg "github.com/Gthulhu/scx_serverless/plugin/internal/registry"
)

func Now() uint64 {
	return uint64(time.Now().UnixNano())
}

// ReadPidMax reads the maximum pid from path, the configured default when
// empty.
func ReadPidMax(path string) (int, error) {
	if path == "" {
		path = reg.DefaultPidMaxPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pid_max: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid_max %q: %w", strings.TrimSpace(string(data)), err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("pid_max must be positive, got %d", v)
	}
	return v, nil
}
