// Package qr はQRトラッキングのスキャン台帳を提供する。
//
// 台帳は短縮ID→エントリのマッピング1つを単一のJSONファイルとして永続化する。
// すべての変更操作はマッピング全体を読み込み、全体を書き戻す。
// 部分書き込みは行わない。
package qr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hitoshi/forgelab/internal/model"
)

// Store はスキャン台帳の永続化インターフェース。
type Store interface {
	// Load は台帳ファイルからマッピング全体を読み込む。
	// ファイルが存在しない、または破損している場合は空のマッピングを返し、
	// エラーにしない。次回のSaveでファイルは再生成される。
	Load() (map[string]*model.QREntry, error)

	// Save はマッピング全体を台帳ファイルへ書き戻す。
	Save(entries map[string]*model.QREntry) error
}

// FileStore は単一JSONファイルを使用するStore実装。
type FileStore struct {
	path string
}

// NewFileStore は指定パスの台帳ファイルを使用するFileStoreを生成する。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load は台帳ファイルからマッピング全体を読み込む。
// 読み込み失敗は空状態への縮退として扱い、厳密な耐久性より可用性を優先する。
func (s *FileStore) Load() (map[string]*model.QREntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]*model.QREntry{}, nil
	}

	entries := map[string]*model.QREntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		// 破損ファイルも空状態として自己回復する
		return map[string]*model.QREntry{}, nil
	}

	return entries, nil
}

// Save はマッピング全体を台帳ファイルへ書き戻す。
// 一時ファイルへ書いてからrenameすることで、書き込み途中のクラッシュで
// 既存の台帳が壊れることを防ぐ。
func (s *FileStore) Save(entries map[string]*model.QREntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}

	return nil
}

// compile-time interface check
var _ Store = (*FileStore)(nil)
