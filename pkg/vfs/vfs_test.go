package vfs

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trellisdb/trellis/pkg/adapters/memstore"
	"github.com/trellisdb/trellis/pkg/cache"
	"github.com/trellisdb/trellis/pkg/client"
	"github.com/trellisdb/trellis/pkg/core"
)

func newTestFS(t *testing.T) (*FS, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	c, err := client.New(client.Config{
		Store:          store,
		Session:        core.Session{Actor: "tester", Workspace: "ws-1"},
		Cache:          cache.New(time.Minute),
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	fs, err := New(Config{Client: c, Cache: cache.New(time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	return fs, store
}

func TestMarker(t *testing.T) {
	if !IsMarker(Marker()) {
		t.Error("Marker not recognized by IsMarker")
	}
	if IsMarker(map[string]any{"other": "directory"}) {
		t.Error("arbitrary map recognized as marker")
	}
	if IsMarker("directory") {
		t.Error("string recognized as marker")
	}
}

func TestMkdir(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()

	if err := fs.Mkdir(ctx, "ws-1", "/projects"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	ok, err := fs.Exists(ctx, "ws-1", "/projects")
	if err != nil || !ok {
		t.Fatalf("Exists after Mkdir = (%v, %v)", ok, err)
	}

	// Idempotent.
	if err := fs.Mkdir(ctx, "ws-1", "/projects"); err != nil {
		t.Errorf("re-Mkdir: %v", err)
	}

	// A path holding a value cannot become a directory.
	fs.Write(ctx, "ws-1", "/config", map[string]any{"k": "v"})
	if err := fs.Mkdir(ctx, "ws-1", "/config"); !core.IsKind(err, core.KindValidation) {
		t.Errorf("Mkdir over value: %v", err)
	}
}

func TestLs(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()

	fs.Write(ctx, "ws-1", "/app/users/1", "u1")
	fs.Write(ctx, "ws-1", "/app/users/2", "u2")
	fs.Write(ctx, "ws-1", "/app/config", "cfg")
	fs.Mkdir(ctx, "ws-1", "/app/empty")
	fs.Write(ctx, "ws-1", "/apple", "fruit") // sibling, not a child

	names, err := fs.Ls(ctx, "ws-1", "/app")
	if err != nil {
		t.Fatalf("Ls: %v", err)
	}
	want := []string{"config", "empty", "users"}
	if len(names) != len(want) {
		t.Fatalf("Ls = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Ls[%d] = %q, want %q (sorted)", i, names[i], want[i])
		}
	}

	// Empty listing for an absent directory.
	names, err = fs.Ls(ctx, "ws-1", "/nothing")
	if err != nil || len(names) != 0 {
		t.Errorf("Ls absent = (%v, %v)", names, err)
	}
}

func TestLs_Root(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	fs.Write(ctx, "ws-1", "/a/deep/doc", 1)
	fs.Write(ctx, "ws-1", "/b", 2)

	names, err := fs.Ls(ctx, "ws-1", "/")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Ls / = %v", names)
	}
}

func TestRm_SingleDocument(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()

	fs.Write(ctx, "ws-1", "/doc", 1)
	if err := fs.Rm(ctx, "ws-1", "/doc"); err != nil {
		t.Fatalf("Rm: %v", err)
	}
	ok, _ := fs.Exists(ctx, "ws-1", "/doc")
	if ok {
		t.Error("document exists after Rm")
	}

	// Absent path is a no-op.
	if err := fs.Rm(ctx, "ws-1", "/doc"); err != nil {
		t.Errorf("Rm absent: %v", err)
	}
}

func TestRm_Recursive(t *testing.T) {
	fs, store := newTestFS(t)
	ctx := context.Background()

	// Enough documents to span several transaction chunks.
	fs.Mkdir(ctx, "ws-1", "/big")
	for i := 0; i < 60; i++ {
		fs.Write(ctx, "ws-1", fmt.Sprintf("/big/l1/l2/doc-%03d", i), i)
	}
	fs.Write(ctx, "ws-1", "/keep", "untouched")

	if err := fs.Rm(ctx, "ws-1", "/big"); err != nil {
		t.Fatalf("Rm: %v", err)
	}
	ok, _ := fs.Exists(ctx, "ws-1", "/big")
	if ok {
		t.Error("/big exists after recursive Rm")
	}
	if store.Len("ws-1") != 1 {
		t.Errorf("store holds %d documents, want just /keep", store.Len("ws-1"))
	}
}

func TestRm_PartialFailureSurfaces(t *testing.T) {
	fs, store := newTestFS(t)
	ctx := context.Background()
	for i := 0; i < 40; i++ {
		fs.Write(ctx, "ws-1", fmt.Sprintf("/big/doc-%03d", i), i)
	}

	// Chunks run concurrently; the counter must be atomic.
	var calls atomic.Int32
	store.FailureHook = func(op string) error {
		if op != "transact" {
			return nil
		}
		if calls.Add(1) > 1 {
			return core.Errorf(core.KindTransactionFailed, "rejected")
		}
		return nil
	}

	err := fs.Rm(ctx, "ws-1", "/big")
	if !core.IsKind(err, core.KindTransactionFailed) {
		t.Fatalf("got %v, want TRANSACTION_FAILED", err)
	}

	// Re-running after the fault clears finishes the removal.
	store.FailureHook = nil
	if err := fs.Rm(ctx, "ws-1", "/big"); err != nil {
		t.Fatalf("re-run: %v", err)
	}
	if store.Len("ws-1") != 0 {
		t.Errorf("%d documents left after re-run", store.Len("ws-1"))
	}
}

func TestMv_SmallIsAtomic(t *testing.T) {
	fs, store := newTestFS(t)
	ctx := context.Background()
	fs.Write(ctx, "ws-1", "/src/a", "a")
	fs.Write(ctx, "ws-1", "/src/b", "b")

	// A rejected transaction leaves both sides untouched.
	store.FailureHook = func(op string) error {
		if op == "transact" {
			return core.Errorf(core.KindTransactionFailed, "rejected")
		}
		return nil
	}
	err := fs.Mv(ctx, "ws-1", "/src", "/dst")
	if !core.IsKind(err, core.KindTransactionFailed) {
		t.Fatalf("got %v, want TRANSACTION_FAILED", err)
	}
	store.FailureHook = nil
	if ok, _ := fs.Exists(ctx, "ws-1", "/src"); !ok {
		t.Error("source gone after failed move")
	}
	if ok, _ := fs.Exists(ctx, "ws-1", "/dst"); ok {
		t.Error("target appeared after failed move")
	}

	// And the successful path moves everything.
	if err := fs.Mv(ctx, "ws-1", "/src", "/dst"); err != nil {
		t.Fatalf("Mv: %v", err)
	}
	if ok, _ := fs.Exists(ctx, "ws-1", "/src"); ok {
		t.Error("source survives after move")
	}
	v, _ := fs.Read(ctx, "ws-1", "/dst/a")
	if v != "a" {
		t.Errorf("/dst/a = %v", v)
	}
}

func TestMv_InvalidatesCachedExistence(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	fs.Write(ctx, "ws-1", "/a/doc", 1)

	// Warm the existence entries on both sides before the move; both answers
	// are served from cache afterwards unless the move invalidates them.
	if ok, _ := fs.Exists(ctx, "ws-1", "/a"); !ok {
		t.Fatal("source missing before move")
	}
	if ok, _ := fs.Exists(ctx, "ws-1", "/b"); ok {
		t.Fatal("target present before move")
	}

	if err := fs.Mv(ctx, "ws-1", "/a", "/b"); err != nil {
		t.Fatalf("Mv: %v", err)
	}

	if ok, _ := fs.Exists(ctx, "ws-1", "/a"); ok {
		t.Error("stale existence answer for the source after move")
	}
	if ok, _ := fs.Exists(ctx, "ws-1", "/b"); !ok {
		t.Error("stale existence answer for the target after move")
	}
}

func TestMv_Large(t *testing.T) {
	fs, store := newTestFS(t)
	ctx := context.Background()
	for i := 0; i < 60; i++ {
		fs.Write(ctx, "ws-1", fmt.Sprintf("/src/nested/doc-%03d", i), i)
	}

	if err := fs.Mv(ctx, "ws-1", "/src", "/dst"); err != nil {
		t.Fatalf("Mv: %v", err)
	}
	if ok, _ := fs.Exists(ctx, "ws-1", "/src"); ok {
		t.Error("source survives after large move")
	}
	v, err := fs.Read(ctx, "ws-1", "/dst/nested/doc-042")
	if err != nil {
		t.Fatal(err)
	}
	if v != float64(42) {
		t.Errorf("/dst/nested/doc-042 = %v", v)
	}
	if store.Len("ws-1") != 60 {
		t.Errorf("store holds %d documents, want 60", store.Len("ws-1"))
	}
}

func TestMv_Validation(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	fs.Write(ctx, "ws-1", "/a/doc", 1)

	if err := fs.Mv(ctx, "ws-1", "/a", "/a"); !core.IsKind(err, core.KindValidation) {
		t.Errorf("same path: %v", err)
	}
	if err := fs.Mv(ctx, "ws-1", "/a", "/a/inside"); !core.IsKind(err, core.KindValidation) {
		t.Errorf("into own subtree: %v", err)
	}
	if err := fs.Mv(ctx, "ws-1", "/missing", "/dst"); !core.IsKind(err, core.KindNotFound) {
		t.Errorf("absent source: %v", err)
	}
}

func TestChunkPaths(t *testing.T) {
	paths := make([]string, 7)
	for i := range paths {
		paths[i] = fmt.Sprintf("/p/%d", i)
	}
	chunks := chunkPaths(paths, 3)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	if len(chunks[0]) != 3 || len(chunks[1]) != 3 || len(chunks[2]) != 1 {
		t.Errorf("chunk sizes = %d/%d/%d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if chunkPaths(nil, 3) != nil {
		t.Error("empty input should yield no chunks")
	}
}
