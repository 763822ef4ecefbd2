package qr

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/forgelab/internal/model"
)

// shortIDBytes は自動採番するトラッキングIDの乱数バイト長。
// hexエンコードで12文字のIDになる。
const shortIDBytes = 6

// probeTimeout はエントリ作成時の到達性確認のタイムアウト。
const probeTimeout = 3 * time.Second

// URLValidator は遷移先URLの安全性検証インターフェース。
// security.URLGuardServiceと同一のメソッドセットを定義する。
type URLValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// ScanMeta はリダイレクト時に記録するリクエストメタデータ。
type ScanMeta struct {
	IP        string
	UserAgent string
	Referer   string
}

// Service はスキャン台帳の操作を提供する。
//
// 変更操作は台帳全体のread-modify-writeサイクルであり、プロセス内の
// 競合はmutexで直列化する。エントリごとのVersionは書き込みのたびに
// インクリメントされ、直列化の下でスキャンの取りこぼしは発生しない。
// 複数プロセスが同一ファイルを共有する構成はサポートせず、その場合は
// 後勝ちとなる（クリック数は重要度の低いイベントであり許容する）。
type Service struct {
	mu        sync.Mutex
	store     Store
	validator URLValidator
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store Store, validator URLValidator) *Service {
	return &Service{
		store:     store,
		validator: validator,
	}
}

// NormalizeURL はスキームを持たないURLに https:// を前置する。
func NormalizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if strings.Contains(rawURL, "://") {
		return rawURL
	}
	return "https://" + rawURL
}

// Create は新しいトラッキングエントリを作成して永続化する。
// urlは必須で、スキームが無い場合はhttpsに正規化した上で安全性を検証する。
// optionalIDが空の場合はランダムな不透明IDを採番する。
// userIDはエントリの所有者として記録される（匿名作成時は空）。
func (s *Service) Create(ctx context.Context, userID, rawURL, optionalID string) (*model.QREntry, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, model.NewMissingURLError()
	}

	normalized := NormalizeURL(rawURL)
	if err := s.validator.ValidateURL(normalized); err != nil {
		return nil, model.NewUnsafeURLError()
	}

	s.probeDestination(ctx, normalized)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	id := optionalID
	if id == "" {
		id, err = generateShortID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate tracking ID: %w", err)
		}
		// 採番衝突は再採番で回避する
		for {
			if _, taken := entries[id]; !taken {
				break
			}
			id, err = generateShortID()
			if err != nil {
				return nil, fmt.Errorf("failed to generate tracking ID: %w", err)
			}
		}
	} else if _, taken := entries[id]; taken {
		return nil, model.NewQRIDTakenError(id)
	}

	entry := &model.QREntry{
		ID:          id,
		UserID:      userID,
		OriginalURL: normalized,
		Count:       0,
		Scans:       []model.QRScan{},
		CreatedAt:   time.Now(),
		Version:     1,
	}
	entries[id] = entry

	if err := s.store.Save(entries); err != nil {
		return nil, fmt.Errorf("failed to persist ledger: %w", err)
	}

	return entry, nil
}

// probeDestination は遷移先の到達性をSSRF防止クライアント経由で確認する。
// ValidateURLは静的検証のため、内部IPに解決されるホスト名はここでの
// ダイヤル時検証で初めて捕捉される。到達できない場合も作成は妨げず、
// 警告ログに留める（遷移先が一時的に停止している場合があるため）。
func (s *Service) probeDestination(ctx context.Context, rawURL string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return
	}

	resp, err := s.validator.NewSafeClient(probeTimeout).Do(req)
	if err != nil {
		slog.Warn("tracked destination not reachable at creation",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return
	}
	resp.Body.Close()
}

// RecordScan はスキャンイベントを記録してエントリを返す。
// IDが存在しない場合は台帳を変更せず (nil, nil) を返す。
// 存在する場合はカウントをインクリメントし、スキャンイベントを追記して
// 永続化する。書き込み後は常に Count == len(Scans) が成り立つ。
func (s *Service) RecordScan(ctx context.Context, id string, meta ScanMeta) (*model.QREntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	entry, ok := entries[id]
	if !ok {
		return nil, nil
	}

	if meta.IP == "" {
		meta.IP = "unknown"
	}
	if meta.Referer == "" {
		meta.Referer = "direct"
	}

	entry.Count++
	entry.Scans = append(entry.Scans, model.QRScan{
		Timestamp: time.Now(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Referer:   meta.Referer,
	})
	entry.Version++

	if err := s.store.Save(entries); err != nil {
		return nil, fmt.Errorf("failed to persist ledger: %w", err)
	}

	return entry, nil
}

// GetStats はエントリのスキャン統計を返す。
// 呼び出し元の識別が無い場合はUnauthenticated、他ユーザーの所有物の場合は
// Forbiddenを返す。存在しないIDにはゼロ値の統計を返す（エラーにしない）。
func (s *Service) GetStats(ctx context.Context, id, userID string) (*model.QRStats, error) {
	if userID == "" {
		return nil, model.NewUnauthorizedError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	entry, ok := entries[id]
	if !ok {
		return &model.QRStats{Scans: []model.QRScan{}}, nil
	}
	if entry.UserID != userID {
		return nil, model.NewForbiddenError()
	}

	return &model.QRStats{
		Count:     entry.Count,
		CreatedAt: entry.CreatedAt,
		Scans:     entry.Scans,
	}, nil
}

// Delete は呼び出し元が所有するエントリを1件削除する。
// 存在しないIDの削除は冪等に成功し、0を返す。
func (s *Service) Delete(ctx context.Context, id, userID string) (int, error) {
	if userID == "" {
		return 0, model.NewUnauthorizedError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger: %w", err)
	}

	entry, ok := entries[id]
	if !ok {
		return 0, nil
	}
	if entry.UserID != userID {
		return 0, model.NewForbiddenError()
	}

	delete(entries, id)
	if err := s.store.Save(entries); err != nil {
		return 0, fmt.Errorf("failed to persist ledger: %w", err)
	}

	return 1, nil
}

// DeleteAll は呼び出し元が所有する全エントリを削除し、削除件数を返す。
func (s *Service) DeleteAll(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, model.NewUnauthorizedError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger: %w", err)
	}

	deleted := 0
	for id, entry := range entries {
		if entry.UserID == userID {
			delete(entries, id)
			deleted++
		}
	}

	if deleted == 0 {
		return 0, nil
	}

	if err := s.store.Save(entries); err != nil {
		return 0, fmt.Errorf("failed to persist ledger: %w", err)
	}

	return deleted, nil
}

// generateShortID はランダムな不透明トラッキングIDを生成する。
func generateShortID() (string, error) {
	b := make([]byte, shortIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
