package survey

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hitoshi/forgelab/internal/model"
	"github.com/hitoshi/forgelab/internal/repository"
)

// --- モック定義 ---

type mockSurveyRepo struct {
	findBySlugFn     func(ctx context.Context, slug string) (*model.Survey, error)
	listByOwnerFn    func(ctx context.Context, userID string) ([]*model.Survey, error)
	createFn         func(ctx context.Context, survey *model.Survey) error
	createResponseFn func(ctx context.Context, response *model.SurveyResponse) error
	countResponsesFn func(ctx context.Context, surveyID string) (int, error)
}

func (m *mockSurveyRepo) FindBySlug(ctx context.Context, slug string) (*model.Survey, error) {
	return m.findBySlugFn(ctx, slug)
}

func (m *mockSurveyRepo) ListByOwner(ctx context.Context, userID string) ([]*model.Survey, error) {
	return m.listByOwnerFn(ctx, userID)
}

func (m *mockSurveyRepo) Create(ctx context.Context, survey *model.Survey) error {
	return m.createFn(ctx, survey)
}

func (m *mockSurveyRepo) CreateResponse(ctx context.Context, response *model.SurveyResponse) error {
	return m.createResponseFn(ctx, response)
}

func (m *mockSurveyRepo) CountResponses(ctx context.Context, surveyID string) (int, error) {
	return m.countResponsesFn(ctx, surveyID)
}

type mockSanitizer struct {
	sanitizeFn func(rawHTML string) string
}

func (m *mockSanitizer) Sanitize(rawHTML string) string {
	return m.sanitizeFn(rawHTML)
}

func passthroughSanitizer() *mockSanitizer {
	return &mockSanitizer{sanitizeFn: func(rawHTML string) string { return rawHTML }}
}

// --- テスト ---

func TestCreate_ValidInput_GeneratesSlugAndID(t *testing.T) {
	var created *model.Survey
	repo := &mockSurveyRepo{
		createFn: func(ctx context.Context, survey *model.Survey) error {
			created = survey
			return nil
		},
	}
	svc := NewService(repo, passthroughSanitizer())

	survey, err := svc.Create(context.Background(), "user-1", CreateInput{
		Title:     "満足度調査",
		Questions: json.RawMessage(`[{"type":"text","label":"ご意見"}]`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if survey.ID == "" || survey.Slug == "" {
		t.Errorf("expected generated ID and slug, got %+v", survey)
	}
	if created == nil || created.UserID != "user-1" {
		t.Errorf("repository should receive the owner, got %+v", created)
	}
	// DEFAULT now()に頼らず明示的にINSERTするため、採番はサービス層の責務
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set before persisting")
	}
}

func TestCreate_EmptyTitle_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockSurveyRepo{}, passthroughSanitizer())

	_, err := svc.Create(context.Background(), "user-1", CreateInput{Title: "  "})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_Description_IsSanitized(t *testing.T) {
	repo := &mockSurveyRepo{
		createFn: func(ctx context.Context, survey *model.Survey) error { return nil },
	}
	sanitizer := &mockSanitizer{
		sanitizeFn: func(rawHTML string) string { return "cleaned" },
	}
	svc := NewService(repo, sanitizer)

	survey, err := svc.Create(context.Background(), "user-1", CreateInput{
		Title:       "t",
		Description: `<script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if survey.Description != "cleaned" {
		t.Errorf("description = %q, want sanitized output", survey.Description)
	}
}

func TestCreate_MissingDesignAndQuestions_DefaultsApplied(t *testing.T) {
	repo := &mockSurveyRepo{
		createFn: func(ctx context.Context, survey *model.Survey) error { return nil },
	}
	svc := NewService(repo, passthroughSanitizer())

	survey, err := svc.Create(context.Background(), "user-1", CreateInput{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(survey.Design) != "{}" {
		t.Errorf("design = %q, want {}", survey.Design)
	}
	if string(survey.Questions) != "[]" {
		t.Errorf("questions = %q, want []", survey.Questions)
	}
}

func TestCreate_SlugCollision_Retries(t *testing.T) {
	calls := 0
	repo := &mockSurveyRepo{
		createFn: func(ctx context.Context, survey *model.Survey) error {
			calls++
			if calls == 1 {
				return repository.ErrDuplicateKey
			}
			return nil
		},
	}
	svc := NewService(repo, passthroughSanitizer())

	survey, err := svc.Create(context.Background(), "user-1", CreateInput{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("create calls = %d, want 2", calls)
	}
	if survey.Slug == "" {
		t.Error("expected slug after retry")
	}
}

func TestGetBySlug_Unknown_ReturnsNotFound(t *testing.T) {
	repo := &mockSurveyRepo{
		findBySlugFn: func(ctx context.Context, slug string) (*model.Survey, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, passthroughSanitizer())

	_, err := svc.GetBySlug(context.Background(), "no-such")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSurveyNotFound {
		t.Fatalf("expected SURVEY_NOT_FOUND, got %v", err)
	}
}

func TestRespond_KnownSlug_AppendsResponse(t *testing.T) {
	var created *model.SurveyResponse
	repo := &mockSurveyRepo{
		findBySlugFn: func(ctx context.Context, slug string) (*model.Survey, error) {
			return &model.Survey{ID: "survey-1", Slug: slug, UserID: "owner"}, nil
		},
		createResponseFn: func(ctx context.Context, response *model.SurveyResponse) error {
			created = response
			return nil
		},
	}
	svc := NewService(repo, passthroughSanitizer())

	resp, err := svc.Respond(context.Background(), "abc123", json.RawMessage(`{"q1":"yes"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SurveyID != "survey-1" {
		t.Errorf("surveyID = %q, want survey-1", resp.SurveyID)
	}
	if created == nil || string(created.Answers) != `{"q1":"yes"}` {
		t.Errorf("repository should receive answers, got %+v", created)
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set before persisting")
	}
}

func TestRespond_EmptyAnswers_ReturnsValidationError(t *testing.T) {
	svc := NewService(&mockSurveyRepo{}, passthroughSanitizer())

	_, err := svc.Respond(context.Background(), "abc123", nil)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRespond_UnknownSlug_ReturnsNotFound(t *testing.T) {
	repo := &mockSurveyRepo{
		findBySlugFn: func(ctx context.Context, slug string) (*model.Survey, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, passthroughSanitizer())

	_, err := svc.Respond(context.Background(), "no-such", json.RawMessage(`{}`))

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSurveyNotFound {
		t.Fatalf("expected SURVEY_NOT_FOUND, got %v", err)
	}
}

// 不在と他人所有のどちらも同一エラーで返ることを検証する。
func TestCountResponses_ForeignOwner_ReturnsNotFound(t *testing.T) {
	repo := &mockSurveyRepo{
		findBySlugFn: func(ctx context.Context, slug string) (*model.Survey, error) {
			return &model.Survey{ID: "survey-1", Slug: slug, UserID: "owner"}, nil
		},
	}
	svc := NewService(repo, passthroughSanitizer())

	_, err := svc.CountResponses(context.Background(), "intruder", "abc123")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSurveyNotFound {
		t.Fatalf("expected SURVEY_NOT_FOUND, got %v", err)
	}
}

func TestCountResponses_Owner_ReturnsCount(t *testing.T) {
	repo := &mockSurveyRepo{
		findBySlugFn: func(ctx context.Context, slug string) (*model.Survey, error) {
			return &model.Survey{ID: "survey-1", Slug: slug, UserID: "user-1"}, nil
		},
		countResponsesFn: func(ctx context.Context, surveyID string) (int, error) {
			return 12, nil
		},
	}
	svc := NewService(repo, passthroughSanitizer())

	count, err := svc.CountResponses(context.Background(), "user-1", "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 12 {
		t.Errorf("count = %d, want 12", count)
	}
}
