package api

import (
	"embed"
	"html/template"

	"github.com/moyoez/tunshare/tool"
)

//go:embed views/*.tmpl
var viewsFS embed.FS

// loadTemplates parses the embedded html views. Templates are addressed by file name, e.g. "index.tmpl".
func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"humanSize": tool.HumanSize,
	}).ParseFS(viewsFS, "views/*.tmpl"))
}
