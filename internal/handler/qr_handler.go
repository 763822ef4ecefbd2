package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/forgelab/internal/middleware"
	"github.com/hitoshi/forgelab/internal/model"
	"github.com/hitoshi/forgelab/internal/qr"
)

// QRServiceInterface はトラッキングハンドラーが必要とするサービスインターフェース。
type QRServiceInterface interface {
	Create(ctx context.Context, userID, rawURL, optionalID string) (*model.QREntry, error)
	RecordScan(ctx context.Context, id string, meta qr.ScanMeta) (*model.QREntry, error)
	GetStats(ctx context.Context, id, userID string) (*model.QRStats, error)
	Delete(ctx context.Context, id, userID string) (int, error)
	DeleteAll(ctx context.Context, userID string) (int, error)
}

// QRMetrics はトラッキングのメトリクス記録インターフェース。
type QRMetrics interface {
	RecordScan(qrID string)
	RecordScanNotFound()
	RecordTrackedCreated()
}

// QRHandler はトラッキングURLの発行・リダイレクト・統計のHTTPハンドラー。
type QRHandler struct {
	service QRServiceInterface
	metrics QRMetrics
	baseURL string
}

// NewQRHandler はQRHandlerを生成する。
// baseURLは発行するtrackUrl/statsUrlの組み立てに使用する。
func NewQRHandler(service QRServiceInterface, metrics QRMetrics, baseURL string) *QRHandler {
	return &QRHandler{
		service: service,
		metrics: metrics,
		baseURL: baseURL,
	}
}

type createTrackedRequest struct {
	URL  string `json:"url"`
	QRID string `json:"qrId"`
}

// CreateTracked はトラッキングURLを発行する。
// 認証済みの場合はエントリに所有者が記録され、統計・削除APIで参照できる。
// POST /api/create-tracked
func (h *QRHandler) CreateTracked(w http.ResponseWriter, r *http.Request) {
	var req createTrackedRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	// 未認証でも発行は可能（その場合は所有者なし）
	userID, _ := middleware.UserIDFromContext(r.Context())

	entry, err := h.service.Create(r.Context(), userID, req.URL, req.QRID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordTrackedCreated()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"qrId":        entry.ID,
		"trackUrl":    fmt.Sprintf("%s/api/track/%s", h.baseURL, entry.ID),
		"statsUrl":    fmt.Sprintf("%s/api/stats/%s", h.baseURL, entry.ID),
		"originalUrl": entry.OriginalURL,
	})
}

// Track はスキャンを記録し、遷移先へリダイレクトする。認証不要。
// 未知のIDは台帳を変更せず404のHTMLページを返す。
// 遷移先を持たないエントリはスキャン数を表示するHTMLページを返す。
// GET /api/track/{qrId}
func (h *QRHandler) Track(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "qrId")

	entry, err := h.service.RecordScan(r.Context(), id, qr.ScanMeta{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if entry == nil {
		h.metrics.RecordScanNotFound()
		writeTrackNotFoundPage(w)
		return
	}

	h.metrics.RecordScan(id)

	if entry.OriginalURL == "" {
		writeScanCountPage(w, entry)
		return
	}
	http.Redirect(w, r, entry.OriginalURL, http.StatusFound)
}

// GetStats はエントリのスキャン統計を返す。
// 他人のエントリは403、存在しないIDはゼロ値の統計を返す。
// GET /api/stats/{qrId}
func (h *QRHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	stats, err := h.service.GetStats(r.Context(), chi.URLParam(r, "qrId"), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Delete は指定エントリを削除する。所有者のみが削除できる。
// DELETE /api/stats/{qrId}
func (h *QRHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	deleted, err := h.service.Delete(r.Context(), chi.URLParam(r, "qrId"), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": deleted,
	})
}

// DeleteAll はユーザーが所有する全エントリを削除する。
// DELETE /api/stats
func (h *QRHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	deleted, err := h.service.DeleteAll(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": deleted,
	})
}
