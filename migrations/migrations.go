package migrations

import "embed"

// FS embeds the SQL migration files in this directory. The golang-migrate
// iofs driver reads them when the devserver applies migrations on boot.
//
//go:embed *.sql
var FS embed.FS

const Version = 1
