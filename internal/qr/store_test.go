package qr

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hitoshi/forgelab/internal/model"
)

func tempLedgerPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "qr.json")
}

func TestFileStore_Load_MissingFile_ReturnsEmptyMapping(t *testing.T) {
	store := NewFileStore(tempLedgerPath(t))

	entries, err := store.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestFileStore_Load_CorruptFile_ReturnsEmptyMapping(t *testing.T) {
	path := tempLedgerPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	store := NewFileStore(path)
	entries, err := store.Load()
	if err != nil {
		t.Fatalf("corrupt file should degrade to empty mapping, got error %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestFileStore_SaveAndLoad_RoundTrip(t *testing.T) {
	store := NewFileStore(tempLedgerPath(t))

	in := map[string]*model.QREntry{
		"abc123": {
			ID:          "abc123",
			UserID:      "user-1",
			OriginalURL: "https://example.com",
			Count:       2,
			Scans: []model.QRScan{
				{Timestamp: time.Now().UTC(), IP: "203.0.113.9", UserAgent: "curl", Referer: "direct"},
				{Timestamp: time.Now().UTC(), IP: "unknown", UserAgent: "", Referer: "direct"},
			},
			CreatedAt: time.Now().UTC(),
			Version:   3,
		},
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	entry, ok := out["abc123"]
	if !ok {
		t.Fatal("saved entry should be loadable")
	}
	if entry.OriginalURL != "https://example.com" {
		t.Errorf("OriginalURL = %q, want %q", entry.OriginalURL, "https://example.com")
	}
	if entry.Count != 2 || len(entry.Scans) != 2 {
		t.Errorf("Count = %d, Scans = %d, want 2 and 2", entry.Count, len(entry.Scans))
	}
	if entry.Version != 3 {
		t.Errorf("Version = %d, want 3", entry.Version)
	}
}

func TestFileStore_Save_RecreatesAfterCorruption(t *testing.T) {
	path := tempLedgerPath(t)
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	store := NewFileStore(path)
	entries, err := store.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	entries["x"] = &model.QREntry{ID: "x", OriginalURL: "https://example.com", Scans: []model.QRScan{}}
	if err := store.Save(entries); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 次回のロードでは復旧済みの台帳が読める
	out, err := store.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := out["x"]; !ok {
		t.Error("ledger should self-heal on next write")
	}
}
