package controllers

import (
	"path"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/tunshare/share"
	"github.com/moyoez/tunshare/tool"
	"github.com/moyoez/tunshare/types"
)

// Template names of the embedded views.
const (
	TemplateIndex    = "index.tmpl"
	TemplateFile     = "file.tmpl"
	TemplateNotFound = "not_found.tmpl"
)

// pageData builds the common template fields of a browse page.
func pageData(title string, resolved *types.Resolved) gin.H {
	data := gin.H{
		"Title":         title,
		"Root":          true,
		"Path":          "/",
		"Parent":        "/",
		"Action":        "/",
		"Live":          true,
		"Download":      false,
		"DownloadURL":   "",
		"Public":        false,
		"Error":         "",
		"TunnelWarning": "",
	}
	if resolved == nil {
		return data
	}
	if resolved.Relative != "" {
		data["Root"] = false
		data["Path"] = "/" + resolved.Relative
		data["Action"] = tool.EscapeURLPath(resolved.Relative)
		data["Parent"] = tool.EscapeURLPath(path.Dir(resolved.Relative))
	}
	switch resolved.Kind {
	case types.KindDirectory:
		data["Listing"] = resolved.Listing
	case types.KindFile:
		data["File"] = resolved.File
	}
	return data
}

// withResult adds the outcome of a share to the page.
func withResult(data gin.H, result *share.Result) gin.H {
	if result == nil {
		return data
	}
	data["DownloadURL"] = result.URL()
	data["Public"] = result.PublicURL != ""
	if result.TunnelErr != nil {
		data["TunnelWarning"] = "The public tunnel could not be opened, the share is only reachable on this network."
	}
	return data
}

func templateFor(kind types.EntryKind) string {
	if kind == types.KindDirectory {
		return TemplateIndex
	}
	return TemplateFile
}
