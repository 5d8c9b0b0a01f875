package store

import (
	"strconv"
	"strings"
)

type dialect int

const (
	sqliteDialect dialect = iota
	postgresDialect
)

// String names the dialect as accepted by database/sql.
func (d dialect) String() string {
	if d == postgresDialect {
		return "postgres"
	}
	return "sqlite3"
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
// Queries in this package never contain literal question marks.
func (d dialect) rebind(query string) string {
	if d != postgresDialect {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
