package http

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var contentTypes = map[string]string{
	".html":  "text/html",
	".css":   "text/css",
	".js":    "application/javascript",
	".json":  "application/json",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".eot":   "application/vnd.ms-fontobject",
}

// ContentType returns the content type served for name.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// CacheControl returns the caching policy for name: HTML is revalidated,
// everything else is immutable for a year.
func CacheControl(name string) string {
	if strings.ToLower(filepath.Ext(name)) == ".html" {
		return "no-cache"
	}
	return "public, max-age=31536000"
}

const notFoundPage = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="UTF-8">
  <title>404 - Página não encontrada</title>
  <style>
    body { font-family: Arial, sans-serif; text-align: center; padding: 50px; }
    h1 { color: #C80F15; }
    a { color: #C80F15; text-decoration: none; }
  </style>
</head>
<body>
  <h1>404 - Página não encontrada</h1>
  <p>A página que você procura não existe.</p>
  <a href="/">Voltar para a página inicial</a>
</body>
</html>
`

// resolve maps a request path to a file under root. ok is false when the
// path escapes root.
func (s *Server) resolve(urlPath string) (string, bool) {
	if urlPath == "/" || urlPath == "" {
		urlPath = "/index.html"
	}
	name := filepath.Join(s.root, filepath.FromSlash(urlPath))
	if name != s.root && !strings.HasPrefix(name, s.root+string(filepath.Separator)) {
		return "", false
	}
	return name, true
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	name, ok := s.resolve(r.URL.Path)
	if !ok {
		s.logger.WarnContext(r.Context(), "path traversal rejected", "path", r.URL.Path)
		writeText(w, http.StatusForbidden, "text/plain", "Forbidden")
		return
	}

	data, err := os.ReadFile(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		writeText(w, http.StatusNotFound, "text/html; charset=utf-8", notFoundPage)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "failed to read static file", "path", r.URL.Path, "error", err)
		writeText(w, http.StatusInternalServerError, "text/plain", "Internal Server Error")
		return
	}

	h := w.Header()
	h.Set("Content-Type", ContentType(name))
	h.Set("Cache-Control", CacheControl(name))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

func writeText(w http.ResponseWriter, status int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
