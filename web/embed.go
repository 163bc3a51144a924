// Package web embeds the HTML documents rendered by the service.
package web

import "embed"

// Templates embeds HTML templates.
//
//go:embed templates/invoices/*.html
var Templates embed.FS
