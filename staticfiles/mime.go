// File: staticfiles/mime.go
// Package staticfiles
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package staticfiles

import "strings"

var contentTypes = map[string]string{
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".pdf":   "application/pdf",
	".css":   "text/css",
	".js":    "text/javascript",
	".svg":   "image/svg+xml",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "application/x-font-ttf",
	".eot":   "application/vnd.ms-fontobject",
	".otf":   "application/font-otf",
	".json":  "application/json",
	".xml":   "text/xml",
	".exe":   "application/exe",
}

// text types carry the configured charset.
var textContentTypes = map[string]string{
	".txt":  "text/plain",
	".html": "text/html",
	".htm":  "text/html",
}

// contentTypeFor maps a filename extension to a Content-Type value,
// applying the charset to text types. Unknown extensions yield "".
func contentTypeFor(filename, encoding string) string {
	ext := strings.ToLower(filename)
	if i := strings.LastIndexByte(ext, '.'); i >= 0 {
		ext = ext[i:]
	} else {
		return ""
	}
	if t, ok := textContentTypes[ext]; ok {
		return t + "; charset=" + encoding
	}
	return contentTypes[ext]
}
