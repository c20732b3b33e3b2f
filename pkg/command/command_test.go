package command

import (
	"testing"
)

func contains(paths []string, p string) bool {
	for _, x := range paths {
		if x == p {
			return true
		}
	}
	return false
}

func TestInvalidate_Write(t *testing.T) {
	cmd := NewWrite("ws-1", "/a/b/c", 1)
	inv := cmd.Invalidate()

	for _, p := range []string{"/a/b/c", "/a/b", "/a"} {
		if !contains(inv.Paths, p) {
			t.Errorf("missing path %q in %v", p, inv.Paths)
		}
	}
	if contains(inv.Paths, "/") {
		t.Error("root included in invalidation paths")
	}
	if len(inv.Patterns) != 0 {
		t.Errorf("write should not carry subtree patterns: %v", inv.Patterns)
	}
}

func TestInvalidate_Rm(t *testing.T) {
	cmd := NewRm("ws-1", "/a/b")
	inv := cmd.Invalidate()

	if !contains(inv.Paths, "/a/b") || !contains(inv.Paths, "/a") {
		t.Errorf("paths = %v", inv.Paths)
	}
	if len(inv.Patterns) != 1 {
		t.Fatalf("patterns = %v", inv.Patterns)
	}
	re := inv.Patterns[0]
	if !re.MatchString("/a/b/deep/leaf") {
		t.Error("pattern misses descendant")
	}
	if re.MatchString("/a/b") {
		t.Error("pattern matches the path itself; exact keys handle that")
	}
	if re.MatchString("/a/bc/x") {
		t.Error("pattern crossed a segment boundary")
	}
}

func TestInvalidate_Mv(t *testing.T) {
	cmd := NewMv("ws-1", "/src", "/dst/deep")
	inv := cmd.Invalidate()

	for _, p := range []string{"/src", "/dst/deep", "/dst"} {
		if !contains(inv.Paths, p) {
			t.Errorf("missing path %q in %v", p, inv.Paths)
		}
	}
	if len(inv.Patterns) != 2 {
		t.Fatalf("patterns = %v", inv.Patterns)
	}
	if !inv.Patterns[0].MatchString("/src/child") {
		t.Error("source pattern misses descendant")
	}
	if !inv.Patterns[1].MatchString("/dst/deep/child") {
		t.Error("target pattern misses descendant")
	}
}

func TestInvalidate_PureFromShape(t *testing.T) {
	// Same shape, different values: identical invalidation sets.
	a := NewWrite("ws-1", "/p/x", map[string]any{"big": "payload"}).Invalidate()
	b := NewWrite("ws-1", "/p/x", nil).Invalidate()
	if len(a.Paths) != len(b.Paths) {
		t.Fatalf("paths differ: %v vs %v", a.Paths, b.Paths)
	}
	for i := range a.Paths {
		if a.Paths[i] != b.Paths[i] {
			t.Errorf("paths[%d] = %q vs %q", i, a.Paths[i], b.Paths[i])
		}
	}
}

func TestNewCommand_Lifecycle(t *testing.T) {
	cmd := NewWrite("ws-1", "/a", 1)
	if cmd.Status != StatusCreated {
		t.Errorf("Status = %v", cmd.Status)
	}
	if cmd.ID.String() == NewWrite("ws-1", "/a", 1).ID.String() {
		t.Error("commands share an ID")
	}
	if cmd.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}
