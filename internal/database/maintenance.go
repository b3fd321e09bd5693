package database

import (
	"strings"

	"github.com/lib/pq"
)

// TruncateStatement builds a TRUNCATE over tables that also resets their
// identity sequences and cascades to dependent rows
func TruncateStatement(tables []string) string {
	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = pq.QuoteIdentifier(t)
	}
	return "TRUNCATE TABLE " + strings.Join(quoted, ", ") + " RESTART IDENTITY CASCADE"
}
