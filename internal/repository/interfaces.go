// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"encoding/json"

	"github.com/hitoshi/forgelab/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	// ユーザー名が既に存在する場合はErrDuplicateKeyを返す。
	Create(ctx context.Context, user *model.User) error
}

// ProjectRepository はプロジェクトおよびツール取り付けの永続化インターフェース。
type ProjectRepository interface {
	// FindByIDAndOwner は指定IDかつ指定ユーザー所有のプロジェクトを取得する。
	// 存在しない場合と所有者が異なる場合のどちらもnilを返し、区別しない。
	FindByIDAndOwner(ctx context.Context, id, userID string) (*model.Project, error)

	// ListByOwner はユーザーの全プロジェクトを作成日時降順で返す。
	ListByOwner(ctx context.Context, userID string) ([]*model.Project, error)

	// Create はプロジェクトを作成する。
	Create(ctx context.Context, project *model.Project) error

	// Rename はプロジェクトの名前と説明を更新し、updated_atを進める。
	Rename(ctx context.Context, id, name, description string) error

	// Delete は指定IDのプロジェクトを削除する。
	Delete(ctx context.Context, id string) error

	// ListTools はプロジェクトのツール一覧をorder_index昇順で返す。
	ListTools(ctx context.Context, projectID string) ([]*model.ProjectTool, error)

	// FindTool はプロジェクトに取り付けられたツールを検索する。
	// 見つからない場合はnilを返す。
	FindTool(ctx context.Context, projectID, toolSlug string) (*model.ProjectTool, error)

	// MaxOrderIndex はプロジェクトの既存ツールの最大order_indexを返す。
	// ツールが1つも無い場合は -1 を返す。
	MaxOrderIndex(ctx context.Context, projectID string) (int, error)

	// AddTool はツールの取り付けレコードを作成する。
	// 既に取り付け済みの場合はErrDuplicateKeyを返す。
	AddTool(ctx context.Context, tool *model.ProjectTool) error

	// RemoveTool はツールの取り付けレコードとツールインスタンスデータを
	// 同一トランザクションで削除する。FKカスケードには頼らない。
	RemoveTool(ctx context.Context, projectID, toolSlug string) error
}

// SurveyRepository はアンケート定義と回答の永続化インターフェース。
type SurveyRepository interface {
	// FindBySlug はスラッグでアンケートを検索する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Survey, error)

	// ListByOwner はユーザーが作成したアンケート一覧を作成日時降順で返す。
	ListByOwner(ctx context.Context, userID string) ([]*model.Survey, error)

	// Create はアンケートを作成する。
	// スラッグが既に存在する場合はErrDuplicateKeyを返す。
	Create(ctx context.Context, survey *model.Survey) error

	// CreateResponse は回答を追記する。回答は不変で、更新・削除APIは持たない。
	CreateResponse(ctx context.Context, response *model.SurveyResponse) error

	// CountResponses はアンケートの回答数を返す。
	CountResponses(ctx context.Context, surveyID string) (int, error)
}

// rawJSONOrDefault はNULL許容のJSONB列をjson.RawMessageに正規化する。
func rawJSONOrDefault(b []byte, def string) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage(def)
	}
	return json.RawMessage(b)
}
