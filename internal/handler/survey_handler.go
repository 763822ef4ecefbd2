package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/forgelab/internal/middleware"
	"github.com/hitoshi/forgelab/internal/model"
	"github.com/hitoshi/forgelab/internal/survey"
)

// SurveyServiceInterface はアンケートハンドラーが必要とするサービスインターフェース。
type SurveyServiceInterface interface {
	Create(ctx context.Context, userID string, input survey.CreateInput) (*model.Survey, error)
	GetBySlug(ctx context.Context, slug string) (*model.Survey, error)
	ListOwn(ctx context.Context, userID string) ([]*model.Survey, error)
	Respond(ctx context.Context, slug string, answers json.RawMessage) (*model.SurveyResponse, error)
	CountResponses(ctx context.Context, userID, slug string) (int, error)
}

// SurveyMetrics はアンケート回答のメトリクス記録インターフェース。
type SurveyMetrics interface {
	RecordSurveyResponse(slug string)
}

// SurveyHandler はアンケート定義と回答収集のHTTPハンドラー。
// 定義の取得と回答の送信は匿名で行える。
type SurveyHandler struct {
	service SurveyServiceInterface
	metrics SurveyMetrics
}

// NewSurveyHandler はSurveyHandlerを生成する。
func NewSurveyHandler(service SurveyServiceInterface, metrics SurveyMetrics) *SurveyHandler {
	return &SurveyHandler{
		service: service,
		metrics: metrics,
	}
}

type createSurveyRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	HeaderImage string          `json:"headerImage"`
	Design      json.RawMessage `json:"design"`
	Questions   json.RawMessage `json:"questions"`
}

type surveyResponse struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	HeaderImage string          `json:"headerImage,omitempty"`
	Design      json.RawMessage `json:"design"`
	Questions   json.RawMessage `json:"questions"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// CreateSurvey は新しいアンケートを作成する。
// POST /api/surveys
func (h *SurveyHandler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createSurveyRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	s, err := h.service.Create(r.Context(), userID, survey.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		HeaderImage: req.HeaderImage,
		Design:      req.Design,
		Questions:   req.Questions,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSurveyResponse(s))
}

// ListSurveys はユーザーが作成したアンケートの一覧を返す。
// GET /api/surveys
func (h *SurveyHandler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	surveys, err := h.service.ListOwn(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]surveyResponse, len(surveys))
	for i, s := range surveys {
		results[i] = toSurveyResponse(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"surveys": results})
}

// GetSurvey は公開スラッグでアンケート定義を返す。認証不要。
// GET /api/surveys/{slug}
func (h *SurveyHandler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSurveyResponse(s))
}

type respondRequest struct {
	Answers json.RawMessage `json:"answers"`
}

// Respond はアンケートへの匿名回答を受け付ける。認証不要。
// POST /api/surveys/{slug}/respond
func (h *SurveyHandler) Respond(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req respondRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	resp, err := h.service.Respond(r.Context(), slug, req.Answers)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordSurveyResponse(slug)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"responseId": resp.ID,
	})
}

// CountResponses はアンケートの回答数を返す。作成者のみが参照できる。
// GET /api/surveys/{slug}/responses/count
func (h *SurveyHandler) CountResponses(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	count, err := h.service.CountResponses(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

// --- ヘルパー関数 ---

func toSurveyResponse(s *model.Survey) surveyResponse {
	return surveyResponse{
		ID:          s.ID,
		Slug:        s.Slug,
		Title:       s.Title,
		Description: s.Description,
		HeaderImage: s.HeaderImage,
		Design:      s.Design,
		Questions:   s.Questions,
		CreatedAt:   s.CreatedAt,
	}
}
