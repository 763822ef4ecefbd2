package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/forgelab/internal/model"
)

// PostgresSurveyRepo はPostgreSQLを使用したアンケートリポジトリ。
type PostgresSurveyRepo struct {
	db *sql.DB
}

// NewPostgresSurveyRepo はPostgresSurveyRepoを生成する。
func NewPostgresSurveyRepo(db *sql.DB) *PostgresSurveyRepo {
	return &PostgresSurveyRepo{db: db}
}

// FindBySlug はスラッグでアンケートを検索する。見つからない場合はnilを返す。
func (r *PostgresSurveyRepo) FindBySlug(ctx context.Context, slug string) (*model.Survey, error) {
	s := &model.Survey{}
	var design, questions []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, slug, user_id, title, description, header_image, design, questions, created_at
		 FROM surveys WHERE slug = $1`,
		slug,
	).Scan(&s.ID, &s.Slug, &s.UserID, &s.Title, &s.Description, &s.HeaderImage, &design, &questions, &s.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find survey by slug: %w", err)
	}

	s.Design = rawJSONOrDefault(design, "{}")
	s.Questions = rawJSONOrDefault(questions, "[]")
	return s, nil
}

// ListByOwner はユーザーが作成したアンケート一覧を作成日時降順で返す。
func (r *PostgresSurveyRepo) ListByOwner(ctx context.Context, userID string) ([]*model.Survey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slug, user_id, title, description, header_image, design, questions, created_at
		 FROM surveys WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	defer rows.Close()

	surveys := []*model.Survey{}
	for rows.Next() {
		s := &model.Survey{}
		var design, questions []byte
		if err := rows.Scan(&s.ID, &s.Slug, &s.UserID, &s.Title, &s.Description, &s.HeaderImage, &design, &questions, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		s.Design = rawJSONOrDefault(design, "{}")
		s.Questions = rawJSONOrDefault(questions, "[]")
		surveys = append(surveys, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate surveys: %w", err)
	}

	return surveys, nil
}

// Create はアンケートを作成する。
// スラッグが既に存在する場合はErrDuplicateKeyを返す。
func (r *PostgresSurveyRepo) Create(ctx context.Context, survey *model.Survey) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO surveys (id, slug, user_id, title, description, header_image, design, questions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		survey.ID, survey.Slug, survey.UserID, survey.Title, survey.Description,
		survey.HeaderImage, []byte(survey.Design), []byte(survey.Questions), survey.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert survey: %w", err)
	}
	return nil
}

// CreateResponse は回答を追記する。回答は不変で、更新・削除APIは持たない。
func (r *PostgresSurveyRepo) CreateResponse(ctx context.Context, response *model.SurveyResponse) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO survey_responses (id, survey_id, answers, created_at)
		 VALUES ($1, $2, $3, $4)`,
		response.ID, response.SurveyID, []byte(response.Answers), response.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert survey response: %w", err)
	}
	return nil
}

// CountResponses はアンケートの回答数を返す。
func (r *PostgresSurveyRepo) CountResponses(ctx context.Context, surveyID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM survey_responses WHERE survey_id = $1`,
		surveyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count survey responses: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ SurveyRepository = (*PostgresSurveyRepo)(nil)
