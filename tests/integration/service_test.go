package integration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trellisdb/trellis"
	"github.com/trellisdb/trellis/pkg/adapters/memstore"
	"github.com/trellisdb/trellis/pkg/core"
)

func newService(t *testing.T, opts ...trellis.Option) *trellis.Service {
	t.Helper()
	opts = append([]trellis.Option{
		trellis.WithStore(memstore.New()),
		trellis.WithWorkspace("ws-1"),
		trellis.WithActor("integration"),
	}, opts...)
	svc, err := trellis.New("", opts...)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

// TestSessionTree exercises the session-document scenario end to end:
// documents under a session prefix, tree reads, listings, and archival via
// move.
func TestSessionTree(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Write(ctx, "/sessions/42/title", "Planning"))
	require.NoError(t, svc.Write(ctx, "/sessions/42/messages/1", map[string]any{"text": "hello"}))
	require.NoError(t, svc.Write(ctx, "/sessions/42/messages/2", map[string]any{"text": "world"}))
	require.NoError(t, svc.Write(ctx, "/sessions/43/title", "Other"))

	tree, err := svc.ReadTree(ctx, "/sessions/42")
	require.NoError(t, err)
	assert.Len(t, tree, 3)
	assert.Equal(t, "Planning", tree["/sessions/42/title"])

	names, err := svc.Ls(ctx, "/sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "43"}, names)

	names, err = svc.Ls(ctx, "/sessions/42")
	require.NoError(t, err)
	assert.Equal(t, []string{"messages", "title"}, names)

	// Archive session 42; listings on both sides stay consistent.
	require.NoError(t, svc.Mv(ctx, "/sessions/42", "/archive/42"))

	names, err = svc.Ls(ctx, "/sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{"43"}, names)

	exists, err := svc.Exists(ctx, "/archive/42/messages/2")
	require.NoError(t, err)
	assert.True(t, exists)

	v, err := svc.Read(ctx, "/archive/42/title")
	require.NoError(t, err)
	assert.Equal(t, "Planning", v)
}

// TestFilestoreBacked runs the same consumer flow against the on-disk
// adapter to catch adapter-specific divergence.
func TestFilestoreBacked(t *testing.T) {
	svc, err := trellis.New(t.TempDir(),
		trellis.WithWorkspace("ws-1"),
		trellis.WithActor("integration"),
	)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	require.NoError(t, svc.Write(ctx, "/cfg/limits", map[string]any{"max": 10}))
	require.NoError(t, svc.Mkdir(ctx, "/cfg/flags"))

	v, err := svc.Read(ctx, "/cfg/limits")
	require.NoError(t, err)
	assert.Equal(t, float64(10), v.(map[string]any)["max"])

	names, err := svc.Ls(ctx, "/cfg")
	require.NoError(t, err)
	assert.Equal(t, []string{"flags", "limits"}, names)

	require.NoError(t, svc.Rm(ctx, "/cfg"))
	exists, err := svc.Exists(ctx, "/cfg")
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestBatchSemantics verifies ordered results, read-vs-write visibility, and
// the all-or-nothing ceiling at the service surface.
func TestBatchSemantics(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Write(ctx, "/acct/balance", 100))

	results, err := svc.Batch(ctx, []core.BatchOperation{
		{Type: core.BatchRead, Path: "/acct/balance"},
		{Type: core.BatchWrite, Path: "/acct/balance", Value: 90},
		{Type: core.BatchWrite, Path: "/acct/audit/1", Value: "withdraw 10"},
		{Type: core.BatchRead, Path: "/acct/limit", Default: 500},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, float64(100), results[0].Value, "read observes pre-batch state")
	assert.True(t, results[1].Written)
	assert.True(t, results[3].UsedDefault)
	assert.Equal(t, 500, results[3].Value)

	v, err := svc.Read(ctx, "/acct/balance")
	require.NoError(t, err)
	assert.Equal(t, float64(90), v)

	// 26 operations: rejected outright, nothing written.
	var ops []core.BatchOperation
	for i := 0; i <= core.MaxTransactItems; i++ {
		ops = append(ops, core.BatchOperation{Type: core.BatchWrite, Path: fmt.Sprintf("/bulk/%d", i), Value: i})
	}
	_, err = svc.Batch(ctx, ops)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindTooManyItems))

	exists, err := svc.Exists(ctx, "/bulk")
	require.NoError(t, err)
	assert.False(t, exists, "no write from the rejected batch may land")
}

// TestSubscriptionFlow verifies post-commit notifications at the service
// surface, including that failed commands never notify.
func TestSubscriptionFlow(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	notifications, cancel, err := svc.Subscribe("/inbox/**")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, svc.Write(ctx, "/inbox/msg-1", "hi"))
	require.NoError(t, svc.Write(ctx, "/outbox/msg-1", "miss"))
	require.NoError(t, svc.Rm(ctx, "/inbox/msg-1"))

	var paths []string
	for len(paths) < 2 {
		n := <-notifications
		paths = append(paths, n.Command.Path)
	}
	assert.Equal(t, []string{"/inbox/msg-1", "/inbox/msg-1"}, paths)
	select {
	case n := <-notifications:
		t.Fatalf("unexpected notification for %s", n.Command.Path)
	default:
	}
}

// TestSaveStateLifecycle verifies the consumer-facing persistence state
// through failure and retry of the identical command.
func TestSaveStateLifecycle(t *testing.T) {
	store := memstore.New()
	svc, err := trellis.New("",
		trellis.WithStore(store),
		trellis.WithWorkspace("ws-1"),
	)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	ctx := context.Background()

	require.NoError(t, svc.Write(ctx, "/note", "v1"))
	assert.Equal(t, "saved", string(svc.SaveState("/note")))

	store.FailureHook = func(op string) error {
		if op == "put" {
			return core.Errorf(core.KindTransactionFailed, "rejected")
		}
		return nil
	}
	err = svc.Write(ctx, "/note", "v2")
	require.Error(t, err)
	assert.Equal(t, "save_failed", string(svc.SaveState("/note")))

	// Reads fall back to the last known-good value.
	v, err := svc.Read(ctx, "/note")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	store.FailureHook = nil
	require.NoError(t, svc.Write(ctx, "/note", "v2"))
	assert.Equal(t, "saved", string(svc.SaveState("/note")))
	v, _ = svc.Read(ctx, "/note")
	assert.Equal(t, "v2", v)
}
