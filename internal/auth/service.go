package auth

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/forgelab/internal/model"
	"github.com/hitoshi/forgelab/internal/repository"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge    int // 通常ログインのセッション有効期間（秒）
	RememberMeMaxAge int // rememberMe指定時のセッション有効期間（秒）
}

// Service はユーザー登録・ログインのサービス層。
type Service struct {
	users  repository.UserRepository
	tokens *TokenService
	config ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository, tokens *TokenService, config ServiceConfig) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		config: config,
	}
}

// LoginResult はログイン成功時の発行済みトークンとCookie有効期間を表す。
type LoginResult struct {
	UserID string
	Token  string
	MaxAge int // Cookie MaxAge（秒）
}

// Register は新規ユーザーを作成する。
// ユーザー名3文字以上、パスワード6文字以上を必須とし、重複ユーザー名を拒否する。
// 存在確認とINSERTの間の競合はDBのユニーク制約で最終的に検出される。
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	if utf8.RuneCountInString(username) < minUsernameLength {
		return nil, model.NewUsernameTooShortError()
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, model.NewPasswordTooShortError()
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError(username)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicateKey {
			return nil, model.NewUsernameTakenError(username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login は認証情報を検証し、署名付きセッショントークンを発行する。
// rememberMeが指定された場合は長寿命のCookie有効期間を使用する。
// ユーザー名の存在有無とパスワード不一致は同一のエラーで応答する。
func (s *Service) Login(ctx context.Context, username, password string, rememberMe bool) (*LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}

	maxAge := s.config.SessionMaxAge
	if rememberMe {
		maxAge = s.config.RememberMeMaxAge
	}

	token, err := s.tokens.Mint(user.ID, time.Duration(maxAge)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to mint session token: %w", err)
	}

	return &LoginResult{
		UserID: user.ID,
		Token:  token,
		MaxAge: maxAge,
	}, nil
}
