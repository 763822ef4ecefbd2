package middleware

import (
	"context"
	"net/http"
	"strings"
)

// publicPages は未認証でもアクセスできるページパス（完全一致）。
var publicPages = map[string]struct{}{
	"/":         {},
	"/login":    {},
	"/register": {},
	"/healthz":  {},
	"/metrics":  {},
}

// publicAPIPrefixes は未認証でもアクセスできるAPIパスのプレフィックス。
// トラッキングのリダイレクトと認証系・アンケート公開系のエンドポイントを含む。
var publicAPIPrefixes = []string{
	"/api/auth/",
	"/api/track/",
	"/api/create-tracked",
	"/api/surveys",
}

// loginPages はログイン・登録のページパス。認証済みユーザーは
// ダッシュボードへ誘導する。
var loginPages = map[string]struct{}{
	"/login":    {},
	"/register": {},
}

// isPublicPath はパスが公開ルートかどうかを判定する。
func isPublicPath(path string) bool {
	if _, ok := publicPages[path]; ok {
		return true
	}
	for _, prefix := range publicAPIPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// NewGatekeeperMiddleware は全リクエスト共通の認可振り分けを行う
// ミドルウェアを返す。Cookieのトークンをデコードするだけの
// ステートレスな判定で、ストア参照は行わない。
//
//   - 未認証 かつ 非公開ルート     → /login へリダイレクト
//   - 認証済み かつ ログイン系ページ → /dashboard へリダイレクト
//   - それ以外                     → 通過
//
// 認証済みでユーザーIDを持つ場合はコンテキストに注入し、
// 後段のロギングやハンドラーから参照できるようにする。
func NewGatekeeperMiddleware(parser TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromRequest(r, parser)
			authenticated := session != nil && session.Authenticated()

			path := r.URL.Path

			if !authenticated {
				if !isPublicPath(path) {
					http.Redirect(w, r, "/login", http.StatusFound)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := loginPages[path]; ok {
				http.Redirect(w, r, "/dashboard", http.StatusFound)
				return
			}

			if session.UserID != "" {
				ctx := context.WithValue(r.Context(), userIDContextKey, session.UserID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}
