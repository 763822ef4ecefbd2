package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/forgelab/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
// プロジェクト本体とツール取り付け（project_tools / tool_instances）を扱う。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// FindByIDAndOwner は指定IDかつ指定ユーザー所有のプロジェクトを取得する。
// 存在しない場合と所有者が異なる場合のどちらもnilを返し、区別しない。
func (r *PostgresProjectRepo) FindByIDAndOwner(ctx context.Context, id, userID string) (*model.Project, error) {
	p := &model.Project{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at
		 FROM projects WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	return p, nil
}

// ListByOwner はユーザーの全プロジェクトを作成日時降順で返す。
func (r *PostgresProjectRepo) ListByOwner(ctx context.Context, userID string) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at
		 FROM projects WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*model.Project{}
	for rows.Next() {
		p := &model.Project{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// Create はプロジェクトを作成する。
func (r *PostgresProjectRepo) Create(ctx context.Context, project *model.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		project.ID, project.UserID, project.Name, project.Description,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// Rename はプロジェクトの名前と説明を更新し、updated_atを進める。
func (r *PostgresProjectRepo) Rename(ctx context.Context, id, name, description string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET name = $2, description = $3, updated_at = now() WHERE id = $1`,
		id, name, description,
	)
	if err != nil {
		return fmt.Errorf("failed to rename project: %w", err)
	}
	return nil
}

// Delete は指定IDのプロジェクトを削除する。
// project_tools / tool_instances はFKカスケードで削除される。
func (r *PostgresProjectRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// ListTools はプロジェクトのツール一覧をorder_index昇順で返す。
func (r *PostgresProjectRepo) ListTools(ctx context.Context, projectID string) ([]*model.ProjectTool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT project_id, tool_slug, order_index, created_at
		 FROM project_tools WHERE project_id = $1 ORDER BY order_index ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list project tools: %w", err)
	}
	defer rows.Close()

	tools := []*model.ProjectTool{}
	for rows.Next() {
		t := &model.ProjectTool{}
		if err := rows.Scan(&t.ProjectID, &t.ToolSlug, &t.OrderIndex, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project tool: %w", err)
		}
		tools = append(tools, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate project tools: %w", err)
	}

	return tools, nil
}

// FindTool はプロジェクトに取り付けられたツールを検索する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindTool(ctx context.Context, projectID, toolSlug string) (*model.ProjectTool, error) {
	t := &model.ProjectTool{}
	err := r.db.QueryRowContext(ctx,
		`SELECT project_id, tool_slug, order_index, created_at
		 FROM project_tools WHERE project_id = $1 AND tool_slug = $2`,
		projectID, toolSlug,
	).Scan(&t.ProjectID, &t.ToolSlug, &t.OrderIndex, &t.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project tool: %w", err)
	}

	return t, nil
}

// MaxOrderIndex はプロジェクトの既存ツールの最大order_indexを返す。
// ツールが1つも無い場合は -1 を返す。
func (r *PostgresProjectRepo) MaxOrderIndex(ctx context.Context, projectID string) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index), -1) FROM project_tools WHERE project_id = $1`,
		projectID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max order index: %w", err)
	}
	return max, nil
}

// AddTool はツールの取り付けレコードを作成する。
// 既に取り付け済みの場合はErrDuplicateKeyを返す。
func (r *PostgresProjectRepo) AddTool(ctx context.Context, tool *model.ProjectTool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO project_tools (project_id, tool_slug, order_index, created_at)
		 VALUES ($1, $2, $3, $4)`,
		tool.ProjectID, tool.ToolSlug, tool.OrderIndex, tool.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert project tool: %w", err)
	}
	return nil
}

// RemoveTool はツールの取り付けレコードとツールインスタンスデータを
// 同一トランザクションで削除する。FKカスケードには頼らない。
func (r *PostgresProjectRepo) RemoveTool(ctx context.Context, projectID, toolSlug string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ウィジェット状態を先に削除する
	_, err = tx.ExecContext(ctx,
		`DELETE FROM tool_instances WHERE project_id = $1 AND tool_slug = $2`,
		projectID, toolSlug,
	)
	if err != nil {
		return fmt.Errorf("failed to delete tool instance: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM project_tools WHERE project_id = $1 AND tool_slug = $2`,
		projectID, toolSlug,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project tool: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
