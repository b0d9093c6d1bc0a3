package mcpserver

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/app"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/config"
	"github.com/kzaorski/jmeter-test-generator-sub001/internal/testutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/snapshot"
)

// testProject is a project directory holding the pets spec, its next
// revision and the generated plan.
type testProject struct {
	srv  *Server
	dir  string
	spec string
	next string
	jmx  string
}

func newTestProject(t *testing.T, c *config.Config, opts ...Option) *testProject {
	t.Helper()
	clearMCPEnv(t)
	dir := t.TempDir()
	p := &testProject{
		dir:  dir,
		spec: testutil.WriteFile(t, dir, "openapi.yaml", testutil.PetsOpenAPI),
		next: testutil.WriteFile(t, dir, "openapi-next.yaml", testutil.PetsOpenAPINext),
		jmx:  testutil.WriteFile(t, dir, "tests/plan.jmx", testutil.PetPlanJMX),
	}
	opts = append(opts, WithBuildOptions(app.WithVersionControl(snapshot.NoVersionControl{})))
	srv, err := New(dir, c, opts...)
	require.NoError(t, err)
	p.srv = srv
	return p
}

func testCfg() *serverConfig {
	return &serverConfig{ListLimit: 100, MaxLimit: 1000}
}

func TestPaginate(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}

	tests := []struct {
		name   string
		items  []int
		offset int
		limit  int
		want   []int
	}{
		{name: "default limit returns all when under 100", items: items, want: []int{0, 1, 2, 3, 4}},
		{name: "explicit limit", items: items, limit: 2, want: []int{0, 1}},
		{name: "offset only", items: items, offset: 2, want: []int{2, 3, 4}},
		{name: "offset and limit", items: items, offset: 1, limit: 2, want: []int{1, 2}},
		{name: "offset beyond end", items: items, offset: 5, limit: 2, want: nil},
		{name: "negative offset", items: items, offset: -1, limit: 2, want: nil},
		{name: "limit exceeds remaining", items: items, offset: 3, limit: 10, want: []int{3, 4}},
		{name: "nil slice", items: nil, limit: 2, want: nil},
		{name: "negative limit treated as default", items: items, limit: -1, want: []int{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paginate(tt.items, tt.offset, tt.limit, testCfg())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaginate_OverflowLimit(t *testing.T) {
	cfg := &serverConfig{ListLimit: 100, MaxLimit: math.MaxInt}
	got := paginate([]int{0, 1, 2}, 1, math.MaxInt, cfg)
	assert.Equal(t, []int{1, 2}, got)
}

func TestPaginate_MaxLimitCap(t *testing.T) {
	items := make([]int, 1500)
	got := paginate(items, 0, 1500, testCfg())
	assert.Len(t, got, 1000, "limit should be capped at MaxLimit")
}

func TestMakeSlice(t *testing.T) {
	assert.Nil(t, makeSlice[string](0))
	s := makeSlice[string](3)
	assert.NotNil(t, s)
	assert.Empty(t, s)
	assert.Equal(t, 3, cap(s))
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil error returns empty string", err: nil, want: ""},
		{
			name: "strips absolute path",
			err:  fmt.Errorf("spec error in /home/user/secret/api.yaml: reading file"),
			want: "spec error in <path>: reading file",
		},
		{name: "preserves non-path content", err: fmt.Errorf("invalid JSON at line 5"), want: "invalid JSON at line 5"},
		{
			name: "strips multiple paths",
			err:  fmt.Errorf("diff /tmp/a.yaml vs /tmp/b.yaml failed"),
			want: "diff <path> vs <path> failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeError(tt.err))
		})
	}
}

func TestErrResult(t *testing.T) {
	res := errResult(fmt.Errorf("open /tmp/x.jmx: denied"))
	require.True(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "open <path>: denied", text.Text)
}

func TestGroupAndSort(t *testing.T) {
	groups := groupAndSort([]string{"GET", "POST", "GET", "DELETE"}, func(s string) []string { return []string{s} })
	assert.Equal(t, []groupCount{{"GET", 2}, {"DELETE", 1}, {"POST", 1}}, groups)
}

func TestValidateGroupBy(t *testing.T) {
	assert.NoError(t, validateGroupBy("", listEndpointsGroupBy))
	assert.NoError(t, validateGroupBy("METHOD", listEndpointsGroupBy))
	assert.ErrorContains(t, validateGroupBy("tag", listEndpointsGroupBy), `invalid group_by value "tag"`)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(t.TempDir(), nil, WithListLimit(0, 0))
	assert.ErrorContains(t, err, "mcpserver: invalid options")

	bad := config.Default()
	bad.MaxBackups = 0
	_, err = New(t.TempDir(), bad)
	assert.ErrorContains(t, err, "max_backups")
}

func TestServerRel(t *testing.T) {
	p := newTestProject(t, nil)
	assert.Equal(t, "tests/plan.jmx", p.srv.rel(p.jmx))
	assert.Equal(t, "", p.srv.rel(""))
	outside := filepath.Join(filepath.Dir(p.dir), "elsewhere.jmx")
	assert.Equal(t, outside, p.srv.rel(outside))
}

func TestMCPServer_ListsTools(t *testing.T) {
	p := newTestProject(t, nil)
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := p.srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "1.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"detect_changes", "compare_specs", "update_jmx", "save_snapshot", "list_endpoints",
		"validate_jmx", "analyze_project",
	}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "detect_changes",
		Arguments: map[string]any{"spec": "openapi.yaml", "jmx": "tests/plan.jmx"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
}
