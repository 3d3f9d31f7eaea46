package logger

import (
	"net/http"
	"strings"
	"sync"
)

// Entries ending in "/" match by prefix. Invocation bodies are small argument
// lists, so they are logged by default.
var (
	bodyLogMu    sync.RWMutex
	bodyLogPaths = map[string]struct{}{
		"/components/": {},
	}
)

// AddBodyLogPaths extends the allowlist at runtime.
func AddBodyLogPaths(paths ...string) {
	bodyLogMu.Lock()
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p != "" {
			bodyLogPaths[p] = struct{}{}
		}
	}
	bodyLogMu.Unlock()
}

// Only log small JSON request bodies on allowlisted routes.
func shouldLogBody(r *http.Request, body []byte) bool {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return false
	}
	if len(body) == 0 || len(body) > 1<<16 { // 64 KiB cap
		return false
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return false
	}
	path := r.URL.Path
	bodyLogMu.RLock()
	defer bodyLogMu.RUnlock()
	if _, ok := bodyLogPaths[path]; ok {
		return true
	}
	for p := range bodyLogPaths {
		if strings.HasSuffix(p, "/") && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
