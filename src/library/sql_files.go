package library

import "embed"

// sqlFilesFS embeds the database migration files so that the binary is self
// contained.
//
//go:embed migrations
var sqlFilesFS embed.FS
