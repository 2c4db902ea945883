// Package all links every storage backend into the binary.
package all

import (
	_ "rowstats/internal/storage/mssql"
	_ "rowstats/internal/storage/mysql"
	_ "rowstats/internal/storage/postgres"
	_ "rowstats/internal/storage/sqlite"
)
