package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP はリクエストの送信元IPアドレスを解決する。
// 解決順: X-Forwarded-Forの先頭 → X-Real-IP → RemoteAddr。
// いずれからも得られない場合は"unknown"を返す。
// リバースプロキシ背後での運用を前提としており、直接公開時は
// ヘッダー偽装が可能な点に注意。
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// カンマ区切りの先頭が元のクライアント
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}
