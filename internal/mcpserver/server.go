// Package mcpserver implements an MCP (Model Context Protocol) server
// that exposes jmeter-gen change detection and JMX updates as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	jmetergen "github.com/kzaorski/jmeter-test-generator-sub001"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/app"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/config"
	"github.com/kzaorski/jmeter-test-generator-sub001/jmxsync"
	"github.com/kzaorski/jmeter-test-generator-sub001/parser"
)

const serverInstructions = `jmeter-gen MCP server: detects OpenAPI/Swagger changes against recorded snapshots and updates generated JMeter (.jmx) plans in place.

Paths are resolved against the project directory the server was started in. Snapshots live in .jmeter-gen/snapshots and plan backups in .jmeter-gen/backups.

Typical flow: analyze_project to find the spec and the state of its plan, detect_changes to preview, update_jmx to apply, save_snapshot to record a baseline for a plan generated elsewhere. The spec argument of these tools is optional; without it the best spec in the project directory is used (openapi.yaml, swagger.json and similar names, up to 3 levels deep). compare_specs diffs two documents without touching any snapshot. validate_jmx checks that a plan is runnable.

Configuration: .jmeter-gen/config.yaml in the project, overridden by JMETER_GEN_* environment variables set in your MCP client config.

Key settings:
- JMETER_GEN_MAX_BACKUPS (default: 10): backups kept per plan
- JMETER_GEN_STRICT_DUPLICATES (default: false): reject specs that repeat a path+method
- JMETER_GEN_EXTERNAL_REFS (default: false): allow $ref into sibling files
- JMETER_GEN_CACHE_ENABLED (default: true): disable spec caching entirely
- JMETER_GEN_CACHE_TTL (default: 15m): cache TTL for loaded specs
- JMETER_GEN_MCP_LIST_LIMIT (default: 100): default result limit for list tools

Caching: Loaded specs are cached per session. File entries use path+mtime as key (auto-invalidated on change); inline content is keyed by its hash.`

// Server holds the wired components behind the MCP tools.
type Server struct {
	cfg   *serverConfig
	comps *app.Components
	cache *specCache

	// writeMu serializes tools that write plans or snapshots.
	writeMu sync.Mutex
}

// New wires a Server for projectDir. A nil c means config.Default().
func New(projectDir string, c *config.Config, opts ...Option) (*Server, error) {
	if c == nil {
		c = config.Default()
	}
	cfg := loadConfig(c)
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("mcpserver: invalid options: %w", err)
		}
	}

	s := &Server{cfg: cfg}
	buildOpts := append([]app.Option{app.WithLoader(func(p *parser.Parser) jmxsync.SpecLoader {
		s.cache = newSpecCache(p, cfg)
		return s.cache
	})}, cfg.buildOpts...)
	comps, err := app.Build(projectDir, c, cfg.logger, buildOpts...)
	if err != nil {
		return nil, err
	}
	s.comps = comps
	return s, nil
}

// Run starts the MCP server over stdio and blocks until the client disconnects
// or the context is cancelled.
func Run(ctx context.Context, projectDir string, c *config.Config, opts ...Option) error {
	s, err := New(projectDir, c, opts...)
	if err != nil {
		return err
	}
	return s.MCPServer().Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns a new MCP server with every tool registered.
func (s *Server) MCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "jmeter-gen", Version: jmetergen.Version()},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)
	s.registerAllTools(server)
	return server
}

func (s *Server) registerAllTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "detect_changes",
		Description: "Compare an OpenAPI/Swagger spec with the snapshot recorded for a JMeter plan. Returns status new (no snapshot yet), unchanged, or changed, with the added, removed and modified endpoints. Never writes. Use offset/limit to paginate through changes.",
	}, s.handleDetectChanges)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compare_specs",
		Description: "Compare two OpenAPI/Swagger documents endpoint by endpoint, without any snapshot. Each side is a file path or inline content. Reports added, removed and modified endpoints with the changed fields of each modification.",
	}, s.handleCompareSpecs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_jmx",
		Description: "Apply spec changes to a JMeter plan in place: disable samplers of removed endpoints, add samplers with a status assertion for new ones, rename samplers whose operationId changed. A backup is taken first and restored on failure. A new snapshot is saved after a fully successful update. Without a snapshot the current spec is recorded as the baseline and the plan is left untouched.",
	}, s.handleUpdateJMX)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_snapshot",
		Description: "Record the current spec as the baseline snapshot for a JMeter plan. Use after generating a plan outside jmeter-gen.",
	}, s.handleSaveSnapshot)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_endpoints",
		Description: "List the endpoints jmeter-gen extracts from a spec, in plan order (path, then GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS, TRACE). Filter by method, operationId or path pattern; path patterns support * (one segment) and ** (zero or more segments). Use group_by=method to get distribution counts instead of individual items.",
	}, s.handleListEndpoints)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_jmx",
		Description: "Check a JMeter plan for the structure a load test needs: jmeterTestPlan root, TestPlan, ThreadGroup with thread count, ramp-up and a loop count or scheduler duration, and HTTP samplers with a path, a method and a server (in the sampler or in HTTP Request Defaults). Returns issues, which make the plan invalid, and recommendations for missing listeners, timers, assertions and headers. Never writes.",
	}, s.handleValidateJMX)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_project",
		Description: "Find the OpenAPI/Swagger spec in the project directory and summarize it: title, version, base URL, endpoint count, the recommended plan file name, every other spec found, and whether the plan is new, unchanged or changed against its snapshot. Never writes.",
	}, s.handleAnalyzeProject)
}

// path resolves a tool path argument against the project directory.
func (s *Server) path(p string) string {
	return resolvePath(s.comps.ProjectDir, p)
}

// rel reports p relative to the project directory when it lies inside it.
func (s *Server) rel(p string) string {
	if p == "" {
		return ""
	}
	r, err := filepath.Rel(s.comps.ProjectDir, p)
	if err != nil || strings.HasPrefix(r, "..") {
		return p
	}
	return filepath.ToSlash(r)
}

// paginate applies offset/limit pagination to a slice, returning the
// requested page. A non-positive limit defaults to cfg.ListLimit.
func paginate[T any](items []T, offset, limit int, cfg *serverConfig) []T {
	if limit <= 0 {
		limit = cfg.ListLimit
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end < offset || end > len(items) { // overflow or beyond slice
		end = len(items)
	}
	return items[offset:end]
}

// makeSlice returns nil when n is 0 (preserving omitempty JSON semantics),
// otherwise returns make([]T, 0, n) for pre-allocated appending.
func makeSlice[T any](n int) []T {
	if n == 0 {
		return nil
	}
	return make([]T, 0, n)
}

// sanitizeError strips absolute filesystem paths from error messages
// to prevent leaking internal directory structure to MCP clients.
var pathPattern = regexp.MustCompile(`(?:/(?:home|tmp|var|Users|etc|opt|usr|private|root|mnt|srv|run|snap|nix)[a-zA-Z0-9._/-]*)`)

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return pathPattern.ReplaceAllString(err.Error(), "<path>")
}

// errResult creates an MCP error result from an error.
func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: sanitizeError(err)}},
	}
}

// groupCount represents a single group in group_by results.
type groupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// groupAndSort groups items by key, sorts by count descending (ties
// broken alphabetically by key), and returns the sorted groups.
func groupAndSort[T any](items []T, keyFn func(T) []string) []groupCount {
	counts := make(map[string]int)
	for _, item := range items {
		for _, key := range keyFn(item) {
			counts[key]++
		}
	}
	groups := make([]groupCount, 0, len(counts))
	for key, count := range counts {
		groups = append(groups, groupCount{Key: key, Count: count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

// validateGroupBy checks that group_by is a valid value.
func validateGroupBy(groupBy string, allowed []string) error {
	if groupBy == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(groupBy, a) {
			return nil
		}
	}
	return fmt.Errorf("invalid group_by value %q; valid values: %s", groupBy, strings.Join(allowed, ", "))
}
