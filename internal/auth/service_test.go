package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/forgelab/internal/model"
	"github.com/hitoshi/forgelab/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func newTestService(users repository.UserRepository) *Service {
	return NewService(users, NewTokenService("test-secret"), ServiceConfig{
		SessionMaxAge:    86400,
		RememberMeMaxAge: 30 * 86400,
	})
}

// --- テスト ---

func TestRegister_ValidInput_CreatesUser(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), "alice", "secret123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want %q", user.Username, "alice")
	}
	if user.ID == "" {
		t.Error("user ID should be generated")
	}
	if created == nil {
		t.Fatal("repository Create should be called")
	}
	if created.PasswordHash == "secret123" || created.PasswordHash == "" {
		t.Error("password should be stored as a hash, not plaintext")
	}
}

func TestRegister_UsernameTooShort_ReturnsValidationError(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Register(context.Background(), "ab", "secret123")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUsernameTooShort {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUsernameTooShort)
	}
}

func TestRegister_PasswordTooShort_ReturnsValidationError(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Register(context.Background(), "alice", "12345")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodePasswordTooShort {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodePasswordTooShort)
	}
}

func TestRegister_DuplicateUsername_ReturnsConflict(t *testing.T) {
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "existing", Username: username}, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), "alice", "secret123")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUsernameTaken {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUsernameTaken)
	}
}

func TestRegister_InsertRace_DuplicateKeyMappedToConflict(t *testing.T) {
	// 存在確認とINSERTの間に同名ユーザーが作られた場合、
	// ユニーク制約違反をConflictとして報告する
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicateKey
		},
	}
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), "alice", "secret123")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUsernameTaken {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUsernameTaken)
	}
}

func registeredUser(t *testing.T, username, password string) *model.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return &model.User{ID: "user-1", Username: username, PasswordHash: hash}
}

func TestLogin_CorrectCredentials_ReturnsToken(t *testing.T) {
	user := registeredUser(t, "alice", "secret123")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if username == "alice" {
				return user, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(repo)

	result, err := svc.Login(context.Background(), "alice", "secret123", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", result.UserID, "user-1")
	}
	if result.MaxAge != 86400 {
		t.Errorf("MaxAge = %d, want %d", result.MaxAge, 86400)
	}

	// 発行されたトークンは自ユーザーIDで検証できる
	session, err := NewTokenService("test-secret").Parse(result.Token)
	if err != nil {
		t.Fatalf("minted token should parse: %v", err)
	}
	if session.UserID != "user-1" {
		t.Errorf("token UserID = %q, want %q", session.UserID, "user-1")
	}
}

func TestLogin_RememberMe_ExtendsMaxAge(t *testing.T) {
	user := registeredUser(t, "alice", "secret123")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return user, nil
		},
	}
	svc := newTestService(repo)

	result, err := svc.Login(context.Background(), "alice", "secret123", true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.MaxAge != 30*86400 {
		t.Errorf("MaxAge = %d, want %d", result.MaxAge, 30*86400)
	}
}

func TestLogin_WrongPassword_ReturnsInvalidCredentials(t *testing.T) {
	user := registeredUser(t, "alice", "secret123")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return user, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Login(context.Background(), "alice", "wrong-password", false)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidCredential {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredential)
	}
}

func TestLogin_UnknownUser_SameErrorAsWrongPassword(t *testing.T) {
	// ユーザー名の存在有無が応答から判別できないこと
	user := registeredUser(t, "alice", "secret123")
	repo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if username == "alice" {
				return user, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(repo)

	_, errUnknown := svc.Login(context.Background(), "nobody", "secret123", false)
	_, errWrongPw := svc.Login(context.Background(), "alice", "wrong", false)

	if errUnknown == nil || errWrongPw == nil {
		t.Fatal("both logins should fail")
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("unknown-user error %q should match wrong-password error %q", errUnknown, errWrongPw)
	}
}
