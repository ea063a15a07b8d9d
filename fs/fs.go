// Package appfs exposes the application's embedded assets: database
// migrations and email templates.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS

//go:embed templates/email
var Templates embed.FS
