package api

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

var statusTemplate = template.Must(template.ParseFS(templatesFS, "templates/status.html")) //nolint:gochecknoglobals // parsed once at init
