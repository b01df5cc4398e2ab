// Package all links every storage backend into the binary.
package all

import (
	_ "catalogetl/internal/storage/mssql"
	_ "catalogetl/internal/storage/mysql"
	_ "catalogetl/internal/storage/postgres"
	_ "catalogetl/internal/storage/script"
	_ "catalogetl/internal/storage/sqlite"
)
