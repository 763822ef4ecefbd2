package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/forgelab/internal/model"
)

// ErrInvalidToken は署名検証または期限切れで受理できないトークンのエラー。
var ErrInvalidToken = errors.New("invalid or expired session token")

// legacySessionValue は旧形式セッションCookieのセンチネル値。
// 旧実装はログイン成功時にこの平文をCookieへ書いていた。
// 現行実装は読み取り専用の移行パスとしてのみ受理し、新規には発行しない。
const legacySessionValue = "authenticated"

// sessionClaims はセッショントークンのJWTクレーム。
type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// TokenService はバージョン付き署名トークンとしてのセッションの発行・検証を行う。
// サーバー側に状態を持たないため、失効はCookie削除と自然満了のみとなる。
type TokenService struct {
	secret []byte
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Mint はユーザーIDと有効期間からセッショントークンを生成する。
func (s *TokenService) Mint(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "forgelab",
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Parse はCookie値をセッションとして解釈する。
//  1. 署名付きトークンとしてパースできればそのペイロードを返す。
//  2. 旧形式のセンチネル値であれば、ユーザーIDを持たない縮退セッションを返す。
//  3. どちらでもなければErrInvalidTokenを返す。
func (s *TokenService) Parse(value string) (*model.Session, error) {
	if value == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(value, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer("forgelab"), jwt.WithExpirationRequired())

	if err == nil {
		claims, ok := token.Claims.(*sessionClaims)
		if !ok || !token.Valid || claims.UserID == "" || claims.ExpiresAt == nil {
			return nil, ErrInvalidToken
		}
		return &model.Session{
			UserID:    claims.UserID,
			ExpiresAt: claims.ExpiresAt.Time,
		}, nil
	}

	// 旧形式フォールバック
	if value == legacySessionValue {
		return &model.Session{Legacy: true}, nil
	}

	return nil, ErrInvalidToken
}
