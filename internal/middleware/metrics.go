package middleware

import "net/http"

// NewMetricsMiddleware はレスポンスのステータスコードを記録関数に渡す
// ミドルウェアを返す。Prometheusコレクターへの橋渡しに使用する。
func NewMetricsMiddleware(record func(statusCode int)) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			record(rec.statusCode)
		})
	}
}
