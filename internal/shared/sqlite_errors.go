// Package shared provides cross-cutting helpers with no home package.
package shared

import "strings"

// Concurrent ingest writers hitting the same SQLite file surface as either
// of these; the driver does not expose typed errors for them.
var sqliteConflictMarkers = []string{
	"SQLITE_BUSY",
	"database is locked",
}

// IsSQLiteConflictError reports whether the error is a SQLite concurrency
// conflict worth retrying, as opposed to a real failure.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range sqliteConflictMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
