//go:build !cgosqlite

package storage

// Default build: pure Go SQLite from modernc.org/sqlite, no C toolchain
// needed.

import (
	"fmt"

	_ "modernc.org/sqlite"
)

const (
	DriverName = "sqlite"
	BuildMode  = "purego"
)

// dsn adds the busy timeout as a _pragma parameter, applied by modernc on
// every new connection
func dsn(path string) string {
	if path == memoryPath {
		return path
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, busyTimeoutMS)
}
