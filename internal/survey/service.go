// Package survey はアンケート定義と回答収集のドメインロジックを提供する。
package survey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/forgelab/internal/model"
	"github.com/hitoshi/forgelab/internal/repository"
	"github.com/hitoshi/forgelab/internal/security"
)

// slugRetryLimit はスラッグ生成の衝突時に再試行する最大回数。
const slugRetryLimit = 3

// CreateInput はアンケート作成の入力。
// DesignとQuestionsは不透明なJSONとして受け取り、構造は解釈しない。
type CreateInput struct {
	Title       string
	Description string
	HeaderImage string
	Design      json.RawMessage
	Questions   json.RawMessage
}

// Service はアンケート管理のサービス層。
// 定義は作成後不変、回答は匿名かつ追記専用として扱う。
type Service struct {
	surveys   repository.SurveyRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(surveys repository.SurveyRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		surveys:   surveys,
		sanitizer: sanitizer,
	}
}

// Create は新しいアンケートを作成し、公開用スラッグを採番する。
// 説明文はHTMLとして扱われるためサニタイズしてから保存する。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Survey, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.NewValidationError("アンケートのタイトルを入力してください。")
	}

	survey := &model.Survey{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: s.sanitizer.Sanitize(input.Description),
		HeaderImage: input.HeaderImage,
		Design:      rawOrEmptyObject(input.Design),
		Questions:   rawOrEmptyArray(input.Questions),
		CreatedAt:   time.Now(),
	}

	// スラッグ衝突時は再生成してリトライする
	for attempt := 0; ; attempt++ {
		slug, err := generateSlug()
		if err != nil {
			return nil, fmt.Errorf("failed to generate slug: %w", err)
		}
		survey.Slug = slug

		err = s.surveys.Create(ctx, survey)
		if err == nil {
			return survey, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) || attempt >= slugRetryLimit {
			return nil, fmt.Errorf("failed to create survey: %w", err)
		}
	}
}

// GetBySlug は公開スラッグでアンケート定義を取得する。認証不要。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.Survey, error) {
	survey, err := s.surveys.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find survey: %w", err)
	}
	if survey == nil {
		return nil, model.NewSurveyNotFoundError(slug)
	}
	return survey, nil
}

// ListOwn はユーザーが作成したアンケートの一覧を返す。
func (s *Service) ListOwn(ctx context.Context, userID string) ([]*model.Survey, error) {
	surveys, err := s.surveys.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	return surveys, nil
}

// Respond はアンケートへの匿名回答を記録する。
// 回答者の識別情報は一切保存しない。
func (s *Service) Respond(ctx context.Context, slug string, answers json.RawMessage) (*model.SurveyResponse, error) {
	if len(answers) == 0 {
		return nil, model.NewValidationError("回答内容が空です。")
	}

	survey, err := s.surveys.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find survey: %w", err)
	}
	if survey == nil {
		return nil, model.NewSurveyNotFoundError(slug)
	}

	response := &model.SurveyResponse{
		ID:        uuid.NewString(),
		SurveyID:  survey.ID,
		Answers:   answers,
		CreatedAt: time.Now(),
	}
	if err := s.surveys.CreateResponse(ctx, response); err != nil {
		return nil, fmt.Errorf("failed to create response: %w", err)
	}

	return response, nil
}

// CountResponses はアンケートの回答数を返す。作成者のみが参照できる。
func (s *Service) CountResponses(ctx context.Context, userID, slug string) (int, error) {
	survey, err := s.surveys.FindBySlug(ctx, slug)
	if err != nil {
		return 0, fmt.Errorf("failed to find survey: %w", err)
	}
	if survey == nil || survey.UserID != userID {
		// 不在も他人所有も同一エラー
		return 0, model.NewSurveyNotFoundError(slug)
	}

	count, err := s.surveys.CountResponses(ctx, survey.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return count, nil
}

// generateSlug はURL用の短い公開スラッグを生成する。
func generateSlug() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func rawOrEmptyObject(b json.RawMessage) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("{}")
	}
	return b
}

func rawOrEmptyArray(b json.RawMessage) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("[]")
	}
	return b
}
