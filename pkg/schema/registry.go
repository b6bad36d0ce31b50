package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/k-shibuki/lyra-sub001/pkg/domain"
	"github.com/k-shibuki/lyra-sub001/pkg/telemetry"
)

// ErrorSchemaName is the shared schema covering all error payloads.
const ErrorSchemaName = "error"

// ToolSchema is the parsed allowlist for one tool's responses. Nested
// objects recurse through Properties.
type ToolSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]*ToolSchema `json:"properties"`
	// LLMGenerated marks fields whose values came out of a model and must be
	// re-validated for leakage on the way out.
	LLMGenerated bool `json:"x-llm-generated"`
}

// cacheEntry pairs a parsed schema with the file mtime it was read at.
type cacheEntry struct {
	schema  *ToolSchema
	modTime time.Time
}

// Registry caches per-tool JSON schema files, reloading an entry whenever
// the backing file's mtime changes. Reads may serve a momentarily stale
// schema during a reload but never a partially-written one: the cache entry
// is replaced as a single swap under the lock.
type Registry struct {
	dir     string
	mu      sync.RWMutex
	cache   map[string]cacheEntry
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewRegistry creates a Registry over dir, which holds one <tool_name>.json
// file per tool. metrics may be nil.
func NewRegistry(dir string, logger *slog.Logger, metrics *telemetry.Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		dir:     dir,
		cache:   make(map[string]cacheEntry),
		logger:  logger,
		metrics: metrics,
	}
}

// Dir reports the schema directory backing this registry.
func (r *Registry) Dir() string { return r.dir }

// Get returns the schema for a tool, loading or reloading from disk when
// the cached mtime no longer matches the file.
func (r *Registry) Get(toolName string) (*ToolSchema, error) {
	path := filepath.Join(r.dir, toolName+".json")

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSchemaMissing, toolName)
		}
		return nil, fmt.Errorf("stat schema for %s: %w", toolName, err)
	}

	r.mu.RLock()
	entry, ok := r.cache[toolName]
	r.mu.RUnlock()
	if ok && entry.modTime.Equal(info.ModTime()) {
		return entry.schema, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema for %s: %w", toolName, err)
	}
	var parsed ToolSchema
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSchemaMalformed, toolName, err)
	}

	r.mu.Lock()
	r.cache[toolName] = cacheEntry{schema: &parsed, modTime: info.ModTime()}
	r.mu.Unlock()

	r.metrics.RecordSchemaReload(toolName)
	r.logger.Debug("tool schema loaded", "tool", toolName, "mtime", info.ModTime())
	return &parsed, nil
}

// Invalidate drops the cached entry for a tool so the next Get rereads it.
func (r *Registry) Invalidate(toolName string) {
	r.mu.Lock()
	delete(r.cache, toolName)
	r.mu.Unlock()
}

// Reset clears the whole cache. Test/teardown entry point.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.cache = make(map[string]cacheEntry)
	r.mu.Unlock()
}
