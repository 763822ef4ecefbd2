package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/forgelab/internal/model"
)

// ページシェル。UIはAPIクライアント側で描画される前提で、
// ここではリダイレクト先として成立する最小限のHTMLのみを返す。
const pageShell = `<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} - ForgeLab</title>
</head>
<body>
<main id="app" data-page="{{.Page}}">
<h1>{{.Title}}</h1>
</main>
</body>
</html>
`

const scanCountPage = `<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>スキャン結果 - ForgeLab</title>
</head>
<body>
<main>
<h1>このQRコードは {{.Count}} 回スキャンされました</h1>
<p>ID: {{.ID}}</p>
</main>
</body>
</html>
`

const trackNotFoundPage = `<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>見つかりません - ForgeLab</title>
</head>
<body>
<main>
<h1>このトラッキングURLは存在しません</h1>
<p>URLが正しいか確認してください。</p>
</main>
</body>
</html>
`

var (
	pageShellTmpl = template.Must(template.New("page").Parse(pageShell))
	scanCountTmpl = template.Must(template.New("scan_count").Parse(scanCountPage))
)

// PageHandler はページシェルを配信するハンドラーを返す。
// ゲートキーパーのリダイレクト先（/login, /dashboard等）を成立させる。
func PageHandler(page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := pageShellTmpl.Execute(w, struct {
			Page  string
			Title string
		}{Page: page, Title: title})
		if err != nil {
			slog.Error("failed to render page", slog.String("page", page), slog.String("error", err.Error()))
		}
	}
}

// writeScanCountPage は遷移先を持たないエントリのスキャン数表示ページを書き込む。
func writeScanCountPage(w http.ResponseWriter, entry *model.QREntry) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := scanCountTmpl.Execute(w, entry); err != nil {
		slog.Error("failed to render scan count page", slog.String("error", err.Error()))
	}
}

// writeTrackNotFoundPage は未知のトラッキングIDに対する404ページを書き込む。
func writeTrackNotFoundPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if _, err := w.Write([]byte(trackNotFoundPage)); err != nil {
		slog.Error("failed to write not found page", slog.String("error", err.Error()))
	}
}
