// Package command provides the uniform mutation abstraction of the layer:
// every write, mkdir, rm, and mv is a Command with a lifecycle, a pure
// mapping from its shape to the cache keys it affects, and post-commit
// subscriber notification. Centralizing invalidation here keeps the many
// heterogeneous triggers in one place.
package command

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/trellisdb/trellis/pkg/pathkey"
)

// Type identifies the mutation a command performs.
type Type string

const (
	TypeWrite Type = "write"
	TypeMkdir Type = "mkdir"
	TypeRm    Type = "rm"
	TypeMv    Type = "mv"
)

// Status is the lifecycle state of a command.
type Status string

const (
	StatusCreated   Status = "created"
	StatusExecuting Status = "executing"
	StatusCommitted Status = "committed"
	StatusFailed    Status = "failed"
)

// Command is the transient descriptor of one mutation. It drives execution
// and invalidation and is never persisted.
type Command struct {
	ID        uuid.UUID
	Type      Type
	Workspace string
	Path      string
	Target    string // mv only
	Value     any    // write only
	Status    Status
	Err       error
	CreatedAt time.Time
}

// NewWrite describes storing value at path.
func NewWrite(workspace, path string, value any) *Command {
	return newCommand(TypeWrite, workspace, path, "", value)
}

// NewMkdir describes creating a directory at path.
func NewMkdir(workspace, path string) *Command {
	return newCommand(TypeMkdir, workspace, path, "", nil)
}

// NewRm describes removing path and its descendants.
func NewRm(workspace, path string) *Command {
	return newCommand(TypeRm, workspace, path, "", nil)
}

// NewMv describes moving path to target.
func NewMv(workspace, path, target string) *Command {
	return newCommand(TypeMv, workspace, path, target, nil)
}

func newCommand(t Type, workspace, path, target string, value any) *Command {
	return &Command{
		ID:        uuid.New(),
		Type:      t,
		Workspace: workspace,
		Path:      path,
		Target:    target,
		Value:     value,
		Status:    StatusCreated,
		CreatedAt: time.Now(),
	}
}

// Invalidation is the affected-cache-key set of a committed command: exact
// paths to invalidate (the path itself plus every ancestor, covering parent
// listings and existence checks) and, for subtree mutations, patterns
// matching everything below the path.
type Invalidation struct {
	Paths    []string
	Patterns []*regexp.Regexp
}

// Invalidate computes the affected-cache-key set purely from the command's
// shape — type, path, target — independent of the resulting value.
func (c *Command) Invalidate() Invalidation {
	var inv Invalidation
	switch c.Type {
	case TypeWrite, TypeMkdir:
		inv.Paths = withAncestors(c.Path)
	case TypeRm:
		inv.Paths = withAncestors(c.Path)
		inv.Patterns = []*regexp.Regexp{subtreePattern(c.Path)}
	case TypeMv:
		inv.Paths = append(withAncestors(c.Path), withAncestors(c.Target)...)
		inv.Patterns = []*regexp.Regexp{subtreePattern(c.Path), subtreePattern(c.Target)}
	}
	return inv
}

// withAncestors returns path followed by each containing path up to but
// excluding the root.
func withAncestors(path string) []string {
	paths := []string{path}
	for p := pathkey.Parent(path); p != "/"; p = pathkey.Parent(p) {
		paths = append(paths, p)
	}
	return paths
}

// subtreePattern matches every path strictly below the given one.
func subtreePattern(path string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(path) + "/")
}
