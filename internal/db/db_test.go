package db

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) func() {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	if err := Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return func() {
		Close()
		os.Remove(path)
	}
}

func TestOpenClose(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	if _, err := handle(); err != nil {
		t.Fatalf("handle after Open: %v", err)
	}
}

func TestQueriesBeforeOpen(t *testing.T) {
	if _, err := GetConfig("node_id"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("GetConfig before Open: %v, want ErrNotOpen", err)
	}
	if _, err := GetWatched(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("GetWatched before Open: %v, want ErrNotOpen", err)
	}
}

func TestGetNodeID(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	id, err := GetNodeID()
	if err != nil {
		t.Fatalf("GetNodeID: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("node_id length = %d, want 32 (hex of 16 random bytes)", len(id))
	}
}

func TestConfigGetSet(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	if err := SetConfig("test_key", "test_value"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	val, err := GetConfig("test_key")
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if val != "test_value" {
		t.Errorf("GetConfig = %q, want %q", val, "test_value")
	}

	// Overwrite
	SetConfig("test_key", "new_value")
	val, _ = GetConfig("test_key")
	if val != "new_value" {
		t.Errorf("after overwrite: %q, want %q", val, "new_value")
	}
}

func TestWatchlist(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	addr := "0x564DF71B75855d63c86a267206Cd0c9e35c92789"
	label := "treasury"
	if err := AddWatched(addr, &label); err != nil {
		t.Fatalf("AddWatched: %v", err)
	}
	// Re-adding without a label keeps the old one
	if err := AddWatched(addr, nil); err != nil {
		t.Fatalf("AddWatched again: %v", err)
	}

	wallets, err := GetWatched()
	if err != nil {
		t.Fatalf("GetWatched: %v", err)
	}
	if len(wallets) != 1 {
		t.Fatalf("GetWatched count = %d, want 1", len(wallets))
	}
	if wallets[0].Label == nil || *wallets[0].Label != "treasury" {
		t.Errorf("label = %v", wallets[0].Label)
	}

	ok, err := IsWatched(addr)
	if err != nil || !ok {
		t.Errorf("IsWatched = %v, %v", ok, err)
	}

	removed, err := RemoveWatched(addr)
	if err != nil || !removed {
		t.Fatalf("RemoveWatched = %v, %v", removed, err)
	}
	removed, _ = RemoveWatched(addr)
	if removed {
		t.Error("second RemoveWatched reported a removal")
	}
	ok, _ = IsWatched(addr)
	if ok {
		t.Error("address still watched after removal")
	}
}

func TestRefreshRuns(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	block := uint64(41_000_000)
	msg := "rpc timeout"
	for i := 0; i < 5; i++ {
		r := &RefreshRun{StartedAt: int64(1000 + i), DurationMs: 120, BlockNumber: &block, Wallets: 2, OK: true}
		if i == 4 {
			r.OK = false
			r.Error = &msg
			r.BlockNumber = nil
		}
		if err := InsertRefreshRun(r); err != nil {
			t.Fatalf("InsertRefreshRun: %v", err)
		}
		if r.ID == 0 {
			t.Fatal("InsertRefreshRun did not set ID")
		}
	}

	runs, err := GetRecentRefreshRuns(3)
	if err != nil {
		t.Fatalf("GetRecentRefreshRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d, want 3", len(runs))
	}
	latest := runs[0]
	if latest.OK || latest.Error == nil || *latest.Error != msg || latest.BlockNumber != nil {
		t.Errorf("latest run = %+v", latest)
	}
	if runs[1].BlockNumber == nil || *runs[1].BlockNumber != block {
		t.Errorf("block number not round-tripped: %+v", runs[1])
	}

	pruned, err := PruneRefreshRuns(2)
	if err != nil {
		t.Fatalf("PruneRefreshRuns: %v", err)
	}
	if pruned != 3 {
		t.Errorf("pruned = %d, want 3", pruned)
	}
}

func TestSwapBinding(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	prev, err := SwapBinding("56/chef/0")
	if err != nil {
		t.Fatalf("SwapBinding: %v", err)
	}
	if prev != "" {
		t.Errorf("first binding prev = %q, want empty", prev)
	}

	prev, _ = SwapBinding("56/chef/0")
	if prev != "56/chef/0" {
		t.Errorf("same binding prev = %q", prev)
	}

	prev, _ = SwapBinding("56/chef/1")
	if prev != "56/chef/0" {
		t.Errorf("changed binding prev = %q, want 56/chef/0", prev)
	}
	if cur, _ := GetConfig(bindingKey); cur != "56/chef/1" {
		t.Errorf("stored binding = %q, want 56/chef/1", cur)
	}
}
