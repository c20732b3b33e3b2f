package syncstate

import (
	"testing"
	"time"

	"github.com/trellisdb/trellis/pkg/cache"
)

func TestTracker_PendingMask(t *testing.T) {
	tr := New(nil, nil)

	if _, ok := tr.Pending("ws-1", "/a"); ok {
		t.Fatal("empty tracker reported a pending update")
	}

	tr.Add("ws-1", "/a", "optimistic", "known-good")

	v, ok := tr.Pending("ws-1", "/a")
	if !ok || v != "optimistic" {
		t.Errorf("Pending = (%v, %v)", v, ok)
	}

	// A pending tombstone: value nil, boolean still true.
	tr.Add("ws-1", "/cleared", nil, "old")
	v, ok = tr.Pending("ws-1", "/cleared")
	if !ok || v != nil {
		t.Errorf("pending tombstone = (%v, %v)", v, ok)
	}

	if tr.PendingCount("ws-1") != 2 {
		t.Errorf("PendingCount = %d", tr.PendingCount("ws-1"))
	}
}

func TestTracker_ConfirmRefreshesCache(t *testing.T) {
	c := cache.New(time.Minute)
	tr := New(c, nil)

	tr.Add("ws-1", "/a", "optimistic", "known-good")
	tr.Confirm("ws-1", "/a", "confirmed")

	if _, ok := tr.Pending("ws-1", "/a"); ok {
		t.Error("update still pending after confirm")
	}
	v, ok := c.Get("ws-1", cache.DocKey("/a"))
	if !ok || v != "confirmed" {
		t.Errorf("cache after confirm = (%v, %v)", v, ok)
	}
	if tr.SaveState("ws-1", "/a") != Saved {
		t.Errorf("SaveState = %v", tr.SaveState("ws-1", "/a"))
	}
}

func TestTracker_ConfirmNormalizesValue(t *testing.T) {
	c := cache.New(time.Minute)
	tr := New(c, nil)

	// Stores round-trip values through JSON, so a committed int comes back
	// as float64 and a struct as a map. A cache hit after confirmation must
	// agree with a store read on those shapes.
	tr.Add("ws-1", "/n", 10, nil)
	tr.Confirm("ws-1", "/n", 10)
	if v, _ := c.Get("ws-1", cache.DocKey("/n")); v != float64(10) {
		t.Errorf("cached int = %v (%T), want float64", v, v)
	}

	tr.Add("ws-1", "/s", struct {
		Max int `json:"max"`
	}{Max: 10}, nil)
	tr.Confirm("ws-1", "/s", struct {
		Max int `json:"max"`
	}{Max: 10})
	v, _ := c.Get("ws-1", cache.DocKey("/s"))
	m, ok := v.(map[string]any)
	if !ok || m["max"] != float64(10) {
		t.Errorf("cached struct = %v (%T), want map[string]any", v, v)
	}

	// A confirmed tombstone caches nil as-is.
	tr.Add("ws-1", "/t", nil, "old")
	tr.Confirm("ws-1", "/t", nil)
	if v, ok := c.Get("ws-1", cache.DocKey("/t")); !ok || v != nil {
		t.Errorf("cached tombstone = (%v, %v)", v, ok)
	}
}

func TestTracker_RollbackRestoresPrevious(t *testing.T) {
	c := cache.New(time.Minute)
	tr := New(c, nil)

	tr.Add("ws-1", "/a", "optimistic", "known-good")
	restored, ok := tr.Rollback("ws-1", "/a", "store rejected write")
	if !ok || restored != "known-good" {
		t.Fatalf("Rollback = (%v, %v)", restored, ok)
	}

	v, _ := c.Get("ws-1", cache.DocKey("/a"))
	if v != "known-good" {
		t.Errorf("cache after rollback = %v", v)
	}
	if tr.SaveState("ws-1", "/a") != SaveFailed {
		t.Errorf("SaveState = %v, want save_failed", tr.SaveState("ws-1", "/a"))
	}

	// Rolling back a path with nothing pending reports false.
	if _, ok := tr.Rollback("ws-1", "/nothing", "x"); ok {
		t.Error("rollback of absent update succeeded")
	}
}

func TestTracker_SupersedeKeepsOriginalPrevious(t *testing.T) {
	c := cache.New(time.Minute)
	tr := New(c, nil)

	// Two rapid edits before either is confirmed: rollback must restore the
	// value from before the first edit, not the first edit itself.
	tr.Add("ws-1", "/a", "edit-1", "original")
	tr.Add("ws-1", "/a", "edit-2", "edit-1")

	if tr.PendingCount("ws-1") != 1 {
		t.Fatalf("PendingCount = %d, superseding should not stack", tr.PendingCount("ws-1"))
	}
	v, _ := tr.Pending("ws-1", "/a")
	if v != "edit-2" {
		t.Errorf("mask = %v, want the newest value", v)
	}

	restored, _ := tr.Rollback("ws-1", "/a", "failed")
	if restored != "original" {
		t.Errorf("restored = %v, want original", restored)
	}
}

func TestTracker_RollbackAll(t *testing.T) {
	c := cache.New(time.Minute)
	tr := New(c, nil)

	tr.Add("ws-1", "/a", "1", "a0")
	tr.Add("ws-1", "/b", "2", "b0")
	tr.Add("ws-2", "/c", "3", "c0")

	n := tr.RollbackAll("ws-1")
	if n != 2 {
		t.Fatalf("RollbackAll = %d, want 2", n)
	}
	if tr.PendingCount("ws-1") != 0 {
		t.Error("ws-1 still has pending updates")
	}
	if tr.PendingCount("ws-2") != 1 {
		t.Error("RollbackAll crossed workspaces")
	}
	if v, _ := c.Get("ws-1", cache.DocKey("/a")); v != "a0" {
		t.Errorf("cache /a = %v, want a0", v)
	}
}

func TestTracker_ValueState(t *testing.T) {
	tr := New(nil, nil)

	st := tr.ValueState("ws-1", "/a", "confirmed")
	if st.Kind != StateConfirmed || st.Value != "confirmed" {
		t.Errorf("confirmed state = %+v", st)
	}

	tr.Add("ws-1", "/a", "optimistic", "confirmed")
	st = tr.ValueState("ws-1", "/a", "confirmed")
	if st.Kind != StatePending || st.Value != "optimistic" || st.Since.IsZero() {
		t.Errorf("pending state = %+v", st)
	}

	tr.Rollback("ws-1", "/a", "conflict")
	st = tr.ValueState("ws-1", "/a", "confirmed")
	if st.Kind != StateRolledBack || st.Reason != "conflict" {
		t.Errorf("rolled-back state = %+v", st)
	}

	// A fresh update clears the failure record.
	tr.Add("ws-1", "/a", "again", "confirmed")
	if tr.SaveState("ws-1", "/a") != Saving {
		t.Errorf("SaveState after re-add = %v", tr.SaveState("ws-1", "/a"))
	}
}

func TestTracker_ConnectionState(t *testing.T) {
	tr := New(nil, nil)
	if tr.ConnectionState() != Connected {
		t.Errorf("initial state = %v", tr.ConnectionState())
	}
	tr.SetConnectionState(Reconnecting)
	if tr.ConnectionState() != Reconnecting {
		t.Errorf("state = %v", tr.ConnectionState())
	}
}
