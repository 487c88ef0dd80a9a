package tool

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildLocalURL builds the local download URL of a port, e.g. http://localhost:3004.
func BuildLocalURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// BuildLANURLs builds http://<ip>:<port> for every local IPv4 address.
func BuildLANURLs(port int) []string {
	ips := GetLocalIPv4s()
	urls := make([]string, 0, len(ips))
	for _, ip := range ips {
		urls = append(urls, fmt.Sprintf("http://%s:%d", ip, port))
	}
	return urls
}

// DownloadLink appends the raw download route to a session base URL.
func DownloadLink(base string) string {
	if base == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/download"
}

// EscapeURLPath turns a slash separated relative path into an absolute URL path,
// escaping each segment so names with '#', '?' or '%' survive a round trip through the browser.
func EscapeURLPath(rel string) string {
	if rel == "" || rel == "." {
		return "/"
	}
	segments := strings.Split(strings.Trim(rel, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "/" + strings.Join(segments, "/")
}
