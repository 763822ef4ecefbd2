package qr

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/forgelab/internal/model"
)

// --- モック定義 ---

// roundTripperFunc はテスト用のhttp.RoundTripperアダプタ。
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// offlineClient は実ネットワークへ出ないHTTPクライアントを返す。
func offlineClient() *http.Client {
	return &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("offline")
		}),
	}
}

type allowAllValidator struct{}

func (allowAllValidator) ValidateURL(rawURL string) error { return nil }

func (allowAllValidator) NewSafeClient(timeout time.Duration) *http.Client {
	return offlineClient()
}

type denyAllValidator struct{}

func (denyAllValidator) ValidateURL(rawURL string) error {
	return errors.New("blocked by policy")
}

func (denyAllValidator) NewSafeClient(timeout time.Duration) *http.Client {
	return offlineClient()
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewFileStore(tempLedgerPath(t)), allowAllValidator{})
}

// --- テスト ---

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com"},
		{"example.com/path?q=1", "https://example.com/path?q=1"},
		{"https://example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeURL(tc.in); got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreate_SchemelessURL_NormalizedToHTTPS(t *testing.T) {
	svc := newTestService(t)

	entry, err := svc.Create(context.Background(), "user-1", "example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if entry.OriginalURL != "https://example.com" {
		t.Errorf("OriginalURL = %q, want %q", entry.OriginalURL, "https://example.com")
	}
	if entry.Count != 0 {
		t.Errorf("Count = %d, want 0", entry.Count)
	}
	if len(entry.Scans) != 0 {
		t.Errorf("Scans = %d, want 0", len(entry.Scans))
	}
	if entry.ID == "" {
		t.Error("ID should be generated")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestCreate_EmptyURL_ReturnsValidationError(t *testing.T) {
	svc := newTestService(t)

	for _, rawURL := range []string{"", "   "} {
		_, err := svc.Create(context.Background(), "user-1", rawURL, "")
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Create(%q): expected APIError, got %v", rawURL, err)
		}
		if apiErr.Code != model.ErrCodeMissingURL {
			t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeMissingURL)
		}
	}
}

func TestCreate_UnsafeURL_Blocked(t *testing.T) {
	svc := NewService(NewFileStore(tempLedgerPath(t)), denyAllValidator{})

	_, err := svc.Create(context.Background(), "user-1", "169.254.169.254/meta", "")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUnsafeURL {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUnsafeURL)
	}
}

type probeRecordingValidator struct {
	probedURL string
}

func (v *probeRecordingValidator) ValidateURL(rawURL string) error { return nil }

func (v *probeRecordingValidator) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			v.probedURL = req.URL.String()
			return nil, errors.New("offline")
		}),
	}
}

// 作成時の到達性確認がSSRF防止クライアント経由で行われることを検証する。
// 到達できない場合も作成自体は成功する。
func TestCreate_ProbesDestinationViaSafeClient(t *testing.T) {
	validator := &probeRecordingValidator{}
	svc := NewService(NewFileStore(tempLedgerPath(t)), validator)

	entry, err := svc.Create(context.Background(), "user-1", "https://example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if entry == nil {
		t.Fatal("entry should be created even when the destination is unreachable")
	}
	if validator.probedURL != "https://example.com" {
		t.Errorf("probed URL = %q, want https://example.com", validator.probedURL)
	}
}

func TestCreate_ExplicitID_Used(t *testing.T) {
	svc := newTestService(t)

	entry, err := svc.Create(context.Background(), "user-1", "example.com", "my-campaign")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if entry.ID != "my-campaign" {
		t.Errorf("ID = %q, want %q", entry.ID, "my-campaign")
	}
}

func TestCreate_DuplicateExplicitID_ReturnsConflict(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Create(context.Background(), "user-1", "example.com", "dup"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err := svc.Create(context.Background(), "user-2", "other.example.com", "dup")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeQRIDTaken {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeQRIDTaken)
	}
}

func TestRecordScan_UnknownID_NoMutation(t *testing.T) {
	path := tempLedgerPath(t)
	store := NewFileStore(path)
	svc := NewService(store, allowAllValidator{})

	if _, err := svc.Create(context.Background(), "user-1", "example.com", "known"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	entry, err := svc.RecordScan(context.Background(), "missing", ScanMeta{IP: "203.0.113.9"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if entry != nil {
		t.Fatal("unknown ID should return nil entry")
	}

	// 台帳は変更されていない
	entries, err := store.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
	if entries["known"].Count != 0 {
		t.Errorf("Count = %d, want 0", entries["known"].Count)
	}
}

func TestRecordScan_IncrementsCountAndAppendsScan(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "user-1", "example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	entry, err := svc.RecordScan(context.Background(), created.ID, ScanMeta{
		IP:        "203.0.113.9",
		UserAgent: "curl/8.0",
		Referer:   "https://ref.example.com",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if entry.Count != 1 {
		t.Errorf("Count = %d, want 1", entry.Count)
	}
	if len(entry.Scans) != entry.Count {
		t.Errorf("len(Scans) = %d, want Count %d", len(entry.Scans), entry.Count)
	}
	scan := entry.Scans[0]
	if scan.IP != "203.0.113.9" {
		t.Errorf("IP = %q, want %q", scan.IP, "203.0.113.9")
	}
	if scan.UserAgent != "curl/8.0" {
		t.Errorf("UserAgent = %q, want %q", scan.UserAgent, "curl/8.0")
	}
	if scan.Referer != "https://ref.example.com" {
		t.Errorf("Referer = %q, want %q", scan.Referer, "https://ref.example.com")
	}
	if scan.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestRecordScan_EmptyMeta_Defaults(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "user-1", "example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	entry, err := svc.RecordScan(context.Background(), created.ID, ScanMeta{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if entry.Scans[0].IP != "unknown" {
		t.Errorf("IP = %q, want %q", entry.Scans[0].IP, "unknown")
	}
	if entry.Scans[0].Referer != "direct" {
		t.Errorf("Referer = %q, want %q", entry.Scans[0].Referer, "direct")
	}
}

func TestRecordScan_ConcurrentScans_NoLostIncrements(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "user-1", "example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.RecordScan(context.Background(), created.ID, ScanMeta{IP: "203.0.113.9"}); err != nil {
				t.Errorf("RecordScan failed: %v", err)
			}
		}()
	}
	wg.Wait()

	stats, err := svc.GetStats(context.Background(), created.ID, "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stats.Count != n {
		t.Errorf("Count = %d, want %d", stats.Count, n)
	}
	if len(stats.Scans) != n {
		t.Errorf("len(Scans) = %d, want %d", len(stats.Scans), n)
	}
}

func TestRecordScan_VersionAdvancesPerWrite(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "user-1", "example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.Version != 1 {
		t.Errorf("Version after create = %d, want 1", created.Version)
	}

	entry, err := svc.RecordScan(context.Background(), created.ID, ScanMeta{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if entry.Version != 2 {
		t.Errorf("Version after scan = %d, want 2", entry.Version)
	}
}

func TestGetStats_NoIdentity_ReturnsUnauthorized(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetStats(context.Background(), "any", "")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUnauthorized {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUnauthorized)
	}
}

func TestGetStats_ForeignEntry_ReturnsForbiddenWithoutContents(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "owner", "example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stats, err := svc.GetStats(context.Background(), created.ID, "intruder")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeForbidden)
	}
	if stats != nil {
		t.Error("forbidden access must not leak entry contents")
	}
	if strings.Contains(apiErr.Message, "example.com") {
		t.Error("error message must not leak the destination URL")
	}
}

func TestGetStats_UnknownID_ReturnsZeroedStats(t *testing.T) {
	svc := newTestService(t)

	stats, err := svc.GetStats(context.Background(), "never-existed", "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stats.Count != 0 {
		t.Errorf("Count = %d, want 0", stats.Count)
	}
	if len(stats.Scans) != 0 {
		t.Errorf("Scans = %d, want 0", len(stats.Scans))
	}
	if !stats.CreatedAt.IsZero() {
		t.Error("CreatedAt should be zero value")
	}
}

func TestGetStats_Idempotent(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "user-1", "example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.RecordScan(context.Background(), created.ID, ScanMeta{IP: "203.0.113.9"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	first, err := svc.GetStats(context.Background(), created.ID, "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.GetStats(context.Background(), created.ID, "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if first.Count != second.Count || len(first.Scans) != len(second.Scans) {
		t.Errorf("consecutive GetStats differ: %+v vs %+v", first, second)
	}
}

func TestDelete_OwnEntry_RemovesAndPersists(t *testing.T) {
	path := tempLedgerPath(t)
	store := NewFileStore(path)
	svc := NewService(store, allowAllValidator{})

	created, err := svc.Create(context.Background(), "user-1", "example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	deleted, err := svc.Delete(context.Background(), created.ID, "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	entries, err := store.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestDelete_ForeignEntry_ReturnsForbidden(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), "owner", "example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err = svc.Delete(context.Background(), created.ID, "intruder")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeForbidden)
	}
}

func TestDeleteAll_RemovesOnlyCallerEntries(t *testing.T) {
	svc := newTestService(t)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), "user-1", "example.com", ""); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	other, err := svc.Create(context.Background(), "user-2", "other.example.com", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	deleted, err := svc.DeleteAll(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	// 他ユーザーのエントリは残っている
	stats, err := svc.GetStats(context.Background(), other.ID, "user-2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if stats.CreatedAt.IsZero() {
		t.Error("other user's entry should survive DeleteAll")
	}
}
