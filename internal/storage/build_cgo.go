//go:build cgosqlite

package storage

// Built with CGO_ENABLED=1 go build -tags cgosqlite ./...
// Uses github.com/mattn/go-sqlite3.

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverName = "sqlite3"
	BuildMode  = "cgo"
)

// dsn adds the busy timeout, which go-sqlite3 takes as a connection parameter
func dsn(path string) string {
	if path == memoryPath {
		return path
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", path, busyTimeoutMS)
}
