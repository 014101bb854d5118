// File: staticfiles/controller.go
// Package staticfiles
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Controller is the reference request handler built on the server
// core: it resolves request paths inside a document root, streams file
// contents in fixed-size blocks and keeps small files in the content
// cache. The cache lock is never held across a socket write.

package staticfiles

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/momentics/hioload-http/internal/obs"
	"github.com/momentics/hioload-http/server"
)

// Config holds static file handler parameters.
type Config struct {
	Path              string        // document root
	Encoding          string        // charset for text content types
	MaxAge            time.Duration // client-side Cache-Control max-age
	MaxCachedFileSize int           // only files up to this size are cached
	CacheSize         int64         // total byte-cost bound of the cache
	CacheTime         time.Duration // entry TTL, 0 = never stale
}

// DefaultConfig returns the defaults: current directory, UTF-8, one
// minute client caching, 64 KiB per file, one megabyte total, one
// minute TTL.
func DefaultConfig() *Config {
	return &Config{
		Path:              ".",
		Encoding:          "UTF-8",
		MaxAge:            60 * time.Second,
		MaxCachedFileSize: 65536,
		CacheSize:         1000000,
		CacheTime:         60 * time.Second,
	}
}

const readBlockSize = 65536

// Controller serves static files. Safe for concurrent use.
type Controller struct {
	cfg     *Config
	docroot string
	cache   *contentCache
}

var _ server.Handler = (*Controller)(nil)

// NewController resolves the document root and prepares the cache.
func NewController(cfg *Config) (*Controller, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	docroot, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, err
	}
	obs.Debugf("StaticFileController: docroot=%s, encoding=%s, maxAge=%v", docroot, cfg.Encoding, cfg.MaxAge)
	return &Controller{
		cfg:     cfg,
		docroot: docroot,
		cache:   newContentCache(cfg.CacheSize, cfg.CacheTime),
	}, nil
}

// CacheStats reports resident entries and bytes.
func (c *Controller) CacheStats() (entries int, bytes int64) {
	return c.cache.Len(), c.cache.Cost()
}

// Service answers one request with file content, 403, or 404.
func (c *Controller) Service(params server.ServiceParams) {
	request := params.Request
	response := params.Response

	path := request.Path
	now := time.Now()

	if document, filename, ok := c.cache.Get(path, now); ok {
		obs.Debugf("StaticFileController: Cache hit for %s", path)
		c.setContentType(filename, response)
		c.setCacheControl(response)
		response.Write(document, false)
		return
	}
	obs.Debugf("StaticFileController: Cache miss for %s", path)

	full, ok := c.resolve(path)
	if !ok {
		obs.Warnf("StaticFileController: detected forbidden characters in path %s", path)
		response.SetStatus(403, "forbidden")
		response.Write([]byte("403 forbidden"), true)
		return
	}

	// If the filename is a directory, append index.html.
	if fi, err := os.Stat(full); err == nil && fi.IsDir() {
		path += "/index.html"
		full = filepath.Join(full, "index.html")
	}

	file, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			response.SetStatus(404, "not found")
			response.Write([]byte("404 not found"), true)
		} else {
			obs.Warnf("StaticFileController: cannot open existing file %s for reading", full)
			response.SetStatus(403, "forbidden")
			response.Write([]byte("403 forbidden"), true)
		}
		return
	}
	defer file.Close()

	c.setContentType(path, response)
	c.setCacheControl(response)

	cacheable := false
	if fi, err := file.Stat(); err == nil && fi.Size() <= int64(c.cfg.MaxCachedFileSize) {
		cacheable = true
	}

	// Stream the file content and collect it for the cache when small
	// enough. The final empty write is left to response finalization.
	var accumulated []byte
	block := make([]byte, readBlockSize)
	for {
		n, err := file.Read(block)
		if n > 0 {
			response.Write(block[:n], false)
			if cacheable {
				accumulated = append(accumulated, block[:n]...)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			obs.Warnf("StaticFileController: read error on %s: %v", full, err)
			return
		}
	}
	if cacheable {
		c.cache.Insert(request.Path, accumulated, path, now)
	}
}

// resolve rejects traversal sequences and paths escaping the document
// root, and returns the absolute filesystem path otherwise.
func (c *Controller) resolve(path string) (string, bool) {
	if strings.Contains(path, "/..") || strings.Contains(path, `\..`) {
		return "", false
	}
	full := filepath.Join(c.docroot, filepath.FromSlash(path))
	if full != c.docroot && !strings.HasPrefix(full, c.docroot+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (c *Controller) setCacheControl(response *server.Response) {
	response.SetHeader("Cache-Control", "max-age="+strconv.Itoa(int(c.cfg.MaxAge/time.Second)))
}

func (c *Controller) setContentType(filename string, response *server.Response) {
	if t := contentTypeFor(filename, c.cfg.Encoding); t != "" {
		response.SetHeader("Content-Type", t)
		return
	}
	obs.Debugf("StaticFileController: unknown MIME type for filename '%s'", filename)
}
