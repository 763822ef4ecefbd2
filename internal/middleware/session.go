// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/forgelab/internal/model"
)

// SessionCookieName はセッショントークンを格納するCookieの名前。
// ハンドラー側のCookie発行・削除と共有する。
const SessionCookieName = "session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenParser はCookie値をセッションとして解釈するインターフェース。
// auth.TokenServiceの部分集合として定義する。
type TokenParser interface {
	Parse(value string) (*model.Session, error)
}

// SessionFromRequest はリクエストのCookieからセッションを復元する。
// Cookieが無い・値が不正な場合はnilを返す（エラーにはしない）。
func SessionFromRequest(r *http.Request, parser TokenParser) *model.Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	session, err := parser.Parse(cookie.Value)
	if err != nil {
		return nil
	}
	return session
}

// NewSessionMiddleware はCookieのセッショントークンを検証し、
// ユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
// 識別子を持たないセッション（旧形式センチネル含む）は、本人性が
// 必要なAPIを呼べないため401 Unauthorizedを返す。
func NewSessionMiddleware(parser TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromRequest(r, parser)
			if session == nil || session.UserID == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアまたはゲートキーパーを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
