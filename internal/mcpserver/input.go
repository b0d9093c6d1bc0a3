package mcpserver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	expirable "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kzaorski/jmeter-test-generator-sub001/apispec"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxsync"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
	"github.com/kzaorski/jmeter-test-generator-sub001/parser"
)

// specInput represents the two ways a spec can be provided to a tool.
// Exactly one of File or Content must be set.
type specInput struct {
	File    string `json:"file,omitempty"    jsonschema:"Path to an OpenAPI 3 or Swagger 2 file, relative to the project directory"`
	Content string `json:"content,omitempty" jsonschema:"Inline OpenAPI 3 or Swagger 2 document (JSON or YAML)"`
}

// specCache is a session-scoped cache of loaded specs in front of the
// parser. File inputs are keyed by (absolutePath, modTime), so an edited
// file misses. Content inputs are keyed by a SHA-256 hash. Cached specs are
// shared between callers and must not be mutated.
type specCache struct {
	parser   *parser.Parser
	entries  *expirable.LRU[string, *apispec.Spec] // nil when caching is disabled
	maxBytes int
	logger   logging.Logger
}

var _ jmxsync.SpecLoader = (*specCache)(nil)

func newSpecCache(p *parser.Parser, cfg *serverConfig) *specCache {
	c := &specCache{parser: p, maxBytes: cfg.MaxInlineSize, logger: cfg.logger}
	if cfg.CacheEnabled {
		c.entries = expirable.NewLRU[string, *apispec.Spec](cfg.CacheMaxSize, nil, cfg.CacheTTL)
	}
	return c
}

// Load implements jmxsync.SpecLoader.
func (c *specCache) Load(path string) (*apispec.Spec, error) {
	key := fileKey(path)
	if spec, ok := c.get(key); ok {
		return spec, nil
	}
	spec, err := c.parser.Load(path)
	if err != nil {
		return nil, err
	}
	c.put(key, spec)
	return spec, nil
}

func (c *specCache) loadContent(content string) (*apispec.Spec, error) {
	if len(content) > c.maxBytes {
		return nil, fmt.Errorf("inline content size %d bytes exceeds maximum %d bytes; use file input instead, or set JMETER_GEN_MCP_MAX_INLINE_SIZE to increase",
			len(content), c.maxBytes)
	}
	key := contentKey(content)
	if spec, ok := c.get(key); ok {
		return spec, nil
	}
	spec, err := c.parser.LoadData([]byte(content), "inline")
	if err != nil {
		return nil, err
	}
	c.put(key, spec)
	return spec, nil
}

func (c *specCache) get(key string) (*apispec.Spec, bool) {
	if c.entries == nil || key == "" {
		return nil, false
	}
	spec, ok := c.entries.Get(key)
	if ok {
		c.logger.Debug("spec cache hit", "key", key)
	}
	return spec, ok
}

func (c *specCache) put(key string, spec *apispec.Spec) {
	if c.entries == nil || key == "" {
		return
	}
	c.entries.Add(key, spec)
}

// len returns the number of cached entries.
func (c *specCache) len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// fileKey returns "" when the file cannot be stat'ed, which disables caching
// for that call.
func fileKey(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("file:%s:%d", absPath, info.ModTime().UnixNano())
}

func contentKey(content string) string {
	h := sha256.Sum256([]byte(content))
	return "content:" + hex.EncodeToString(h[:])
}

// resolve loads the spec from whichever input was provided. Relative file
// paths are taken from projectDir.
func (s specInput) resolve(c *specCache, projectDir string) (*apispec.Spec, error) {
	switch {
	case s.File != "" && s.Content != "":
		return nil, errors.New("exactly one of file or content must be provided (got 2)")
	case s.File != "":
		return c.Load(resolvePath(projectDir, s.File))
	case s.Content != "":
		return c.loadContent(s.Content)
	default:
		return nil, errors.New("exactly one of file or content must be provided (got 0)")
	}
}

func resolvePath(projectDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectDir, path)
}
