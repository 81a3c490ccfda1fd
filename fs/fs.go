// Package appfs holds the files embedded into the binaries: SQL migrations,
// email and export templates, and static assets.
package appfs

import "embed"

//go:embed migrations templates assets
var FS embed.FS
