// Package project はプロジェクトとツール取り付けのドメインロジックを提供する。
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/forgelab/internal/model"
	"github.com/hitoshi/forgelab/internal/repository"
)

// Service はプロジェクト管理のサービス層。
// プロジェクトのCRUDとツール取り付けのビジネスロジックを提供する。
//
// 所有権チェックの原則: 「存在しない」と「他人の所有物」は
// どちらもProjectNotFoundとして返し、区別しない。
// 他ユーザーのリソースの存在を漏らさないための仕様である。
type Service struct {
	projects repository.ProjectRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(projects repository.ProjectRepository) *Service {
	return &Service{projects: projects}
}

// CreateProject は新しいプロジェクトを作成する。
func (s *Service) CreateProject(ctx context.Context, userID, name, description string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("プロジェクト名を入力してください。")
	}

	now := time.Now()
	p := &model.Project{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return p, nil
}

// ListProjects はユーザーの全プロジェクトを返す。
func (s *Service) ListProjects(ctx context.Context, userID string) ([]*model.Project, error) {
	projects, err := s.projects.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject は指定IDのプロジェクトを返す。
func (s *Service) GetProject(ctx context.Context, userID, projectID string) (*model.Project, error) {
	return s.findOwned(ctx, userID, projectID)
}

// RenameProject はプロジェクトの名前と説明を更新する。
func (s *Service) RenameProject(ctx context.Context, userID, projectID, name, description string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("プロジェクト名を入力してください。")
	}

	p, err := s.findOwned(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.projects.Rename(ctx, p.ID, name, description); err != nil {
		return nil, fmt.Errorf("failed to rename project: %w", err)
	}

	p.Name = name
	p.Description = description
	p.UpdatedAt = time.Now()
	return p, nil
}

// DeleteProject はプロジェクトを削除する。所有者のみが削除できる。
func (s *Service) DeleteProject(ctx context.Context, userID, projectID string) error {
	p, err := s.findOwned(ctx, userID, projectID)
	if err != nil {
		return err
	}

	if err := s.projects.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// ListTools はプロジェクトのツール一覧を取り付け順で返す。
func (s *Service) ListTools(ctx context.Context, userID, projectID string) ([]*model.ProjectTool, error) {
	if _, err := s.findOwned(ctx, userID, projectID); err != nil {
		return nil, err
	}

	tools, err := s.projects.ListTools(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return tools, nil
}

// AddTool はプロジェクトにツールを取り付ける。
// order_indexは既存の最大値+1で採番する（ツールが無い場合は0）。
// 削除で生じた欠番は再利用しない。
func (s *Service) AddTool(ctx context.Context, userID, projectID, toolSlug string) (*model.ProjectTool, error) {
	toolSlug = strings.TrimSpace(toolSlug)
	if toolSlug == "" {
		return nil, model.NewValidationError("ツールを指定してください。")
	}

	if _, err := s.findOwned(ctx, userID, projectID); err != nil {
		return nil, err
	}

	existing, err := s.projects.FindTool(ctx, projectID, toolSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check tool: %w", err)
	}
	if existing != nil {
		return nil, model.NewToolAlreadyAddedError(toolSlug)
	}

	maxIndex, err := s.projects.MaxOrderIndex(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve order index: %w", err)
	}

	tool := &model.ProjectTool{
		ProjectID:  projectID,
		ToolSlug:   toolSlug,
		OrderIndex: maxIndex + 1,
		CreatedAt:  time.Now(),
	}
	if err := s.projects.AddTool(ctx, tool); err != nil {
		// 事前チェックの後に挿入された競合ケース
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, model.NewToolAlreadyAddedError(toolSlug)
		}
		return nil, fmt.Errorf("failed to add tool: %w", err)
	}

	return tool, nil
}

// RemoveTool はプロジェクトからツールを取り外す。
// 取り付けレコードとツールインスタンスデータの両方を削除する。
func (s *Service) RemoveTool(ctx context.Context, userID, projectID, toolSlug string) error {
	if _, err := s.findOwned(ctx, userID, projectID); err != nil {
		return err
	}

	existing, err := s.projects.FindTool(ctx, projectID, toolSlug)
	if err != nil {
		return fmt.Errorf("failed to check tool: %w", err)
	}
	if existing == nil {
		return model.NewToolNotFoundError(toolSlug)
	}

	if err := s.projects.RemoveTool(ctx, projectID, toolSlug); err != nil {
		return fmt.Errorf("failed to remove tool: %w", err)
	}
	return nil
}

// findOwned は所有権チェック付きでプロジェクトを取得する。
// 不在と他人所有のどちらもProjectNotFoundに畳み込む。
func (s *Service) findOwned(ctx context.Context, userID, projectID string) (*model.Project, error) {
	p, err := s.projects.FindByIDAndOwner(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError()
	}
	return p, nil
}
