// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// パスワードはargon2idハッシュ（PHC文字列形式）のみを保持し、平文は保存しない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はCookieに格納される署名付きセッショントークンのペイロードを表す。
// サーバー側にセッションテーブルは持たず、トークン自体が唯一の状態となる。
type Session struct {
	UserID    string
	ExpiresAt time.Time

	// Legacy は旧形式（平文センチネル文字列）のCookieから復元された
	// セッションであることを示す。認証済みだがユーザーIDを持たない
	// 縮退状態として扱い、移行期間のみ受理する。
	Legacy bool
}

// Authenticated はセッションが認証済み状態かどうかを返す。
// 旧形式セッションはユーザーIDを持たないが認証済みとして扱う。
func (s *Session) Authenticated() bool {
	if s == nil {
		return false
	}
	return s.UserID != "" || s.Legacy
}
