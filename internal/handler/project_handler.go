package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/forgelab/internal/middleware"
	"github.com/hitoshi/forgelab/internal/model"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	CreateProject(ctx context.Context, userID, name, description string) (*model.Project, error)
	ListProjects(ctx context.Context, userID string) ([]*model.Project, error)
	GetProject(ctx context.Context, userID, projectID string) (*model.Project, error)
	RenameProject(ctx context.Context, userID, projectID, name, description string) (*model.Project, error)
	DeleteProject(ctx context.Context, userID, projectID string) error
	ListTools(ctx context.Context, userID, projectID string) ([]*model.ProjectTool, error)
	AddTool(ctx context.Context, userID, projectID, toolSlug string) (*model.ProjectTool, error)
	RemoveTool(ctx context.Context, userID, projectID, toolSlug string) error
}

// ProjectHandler はプロジェクトとツール取り付けのHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{service: service}
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type projectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type projectToolResponse struct {
	ToolSlug   string    `json:"toolSlug"`
	OrderIndex int       `json:"orderIndex"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ListProjects はユーザーのプロジェクト一覧を返す。
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	projects, err := h.service.ListProjects(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]projectResponse, len(projects))
	for i, p := range projects {
		results[i] = toProjectResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": results})
}

// CreateProject は新しいプロジェクトを作成する。
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req projectRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	p, err := h.service.CreateProject(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectResponse(p))
}

// GetProject は指定IDのプロジェクトを返す。
// 不在と他人所有はどちらも404になる。
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	p, err := h.service.GetProject(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

// RenameProject はプロジェクトの名前と説明を更新する。
// PATCH /api/projects/{id}
func (h *ProjectHandler) RenameProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req projectRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	p, err := h.service.RenameProject(r.Context(), userID, chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

// DeleteProject はプロジェクトを削除する。
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.DeleteProject(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ListTools はプロジェクトのツール一覧を取り付け順で返す。
// GET /api/projects/{id}/tools
func (h *ProjectHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	tools, err := h.service.ListTools(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]projectToolResponse, len(tools))
	for i, tool := range tools {
		results[i] = toProjectToolResponse(tool)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": results})
}

type addToolRequest struct {
	ToolSlug string `json:"toolSlug"`
}

// AddTool はプロジェクトにツールを取り付ける。
// 同じツールの二重取り付けは409を返す。
// POST /api/projects/{id}/tools
func (h *ProjectHandler) AddTool(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req addToolRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	tool, err := h.service.AddTool(r.Context(), userID, chi.URLParam(r, "id"), req.ToolSlug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectToolResponse(tool))
}

// RemoveTool はプロジェクトからツールを取り外す。
// DELETE /api/projects/{id}/tools/{slug}
func (h *ProjectHandler) RemoveTool(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.RemoveTool(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "slug")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// --- ヘルパー関数 ---

func toProjectResponse(p *model.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProjectToolResponse(tool *model.ProjectTool) projectToolResponse {
	return projectToolResponse{
		ToolSlug:   tool.ToolSlug,
		OrderIndex: tool.OrderIndex,
		CreatedAt:  tool.CreatedAt,
	}
}
