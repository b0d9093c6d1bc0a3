package snapshot

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// VCSMetadata identifies the working-copy state a snapshot was captured from.
type VCSMetadata struct {
	Commit string
	Branch string
	Author string
}

// VersionControl supplies best-effort metadata for snapshots. ok is false when
// the project is not under version control or the query failed.
type VersionControl interface {
	Metadata(ctx context.Context) (meta VCSMetadata, ok bool)
}

// DefaultGitTimeout bounds all git queries for one snapshot.
const DefaultGitTimeout = 5 * time.Second

// Git reads metadata by running the git binary in Dir.
type Git struct {
	Dir     string
	Timeout time.Duration
	// Binary defaults to "git".
	Binary string
}

var _ VersionControl = (*Git)(nil)

// NewGit returns a Git rooted at dir with the default timeout.
func NewGit(dir string) *Git {
	return &Git{Dir: dir, Timeout: DefaultGitTimeout}
}

// Metadata returns the HEAD commit, the current branch and the configured
// user email. A missing .git directory, a missing binary, a timeout or a
// failing commit/branch query all yield ok=false. The author is optional.
func (g *Git) Metadata(ctx context.Context) (VCSMetadata, bool) {
	if _, err := os.Stat(filepath.Join(g.Dir, ".git")); err != nil {
		return VCSMetadata{}, false
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	commit, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return VCSMetadata{}, false
	}
	branch, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return VCSMetadata{}, false
	}
	author, _ := g.run(ctx, "config", "user.email")
	return VCSMetadata{Commit: commit, Branch: branch, Author: author}, true
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...) //nolint:gosec // fixed git subcommands
	cmd.Dir = g.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// NoVersionControl never reports metadata.
type NoVersionControl struct{}

// Metadata always returns ok=false.
func (NoVersionControl) Metadata(context.Context) (VCSMetadata, bool) { return VCSMetadata{}, false }
