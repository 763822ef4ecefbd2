// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, resource, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeUsernameTooShort  = "USERNAME_TOO_SHORT"
	ErrCodePasswordTooShort  = "PASSWORD_TOO_SHORT"
	ErrCodeUsernameTaken     = "USERNAME_TAKEN"
	ErrCodeInvalidCredential = "INVALID_CREDENTIALS"
	ErrCodeProjectNotFound   = "PROJECT_NOT_FOUND"
	ErrCodeToolAlreadyAdded  = "TOOL_ALREADY_ADDED"
	ErrCodeToolNotFound      = "TOOL_NOT_FOUND"
	ErrCodeSurveyNotFound    = "SURVEY_NOT_FOUND"
	ErrCodeMissingURL        = "MISSING_URL"
	ErrCodeUnsafeURL         = "UNSAFE_URL"
	ErrCodeQRIDTaken         = "QR_ID_TAKEN"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は認証済みだが権限がない場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "自分が所有するリソースに対してのみ操作できます。",
	}
}

// NewUsernameTooShortError はユーザー名が短すぎる場合のエラーを生成する。
func NewUsernameTooShortError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTooShort,
		Message:  "ユーザー名は3文字以上で入力してください。",
		Category: "validation",
		Action:   "3文字以上のユーザー名を指定してください。",
	}
}

// NewPasswordTooShortError はパスワードが短すぎる場合のエラーを生成する。
func NewPasswordTooShortError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordTooShort,
		Message:  "パスワードは6文字以上で入力してください。",
		Category: "validation",
		Action:   "6文字以上のパスワードを指定してください。",
	}
}

// NewUsernameTakenError はユーザー名が既に使用されている場合のエラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidCredentialsError は認証情報が一致しない場合のエラーを生成する。
// ユーザー名の存在有無を区別しない単一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
// 存在しない場合と他ユーザーの所有物である場合の両方でこのエラーを返し、
// 他ユーザーのプロジェクトIDの存在を漏らさない。
func NewProjectNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  "指定されたプロジェクトが見つかりません。",
		Category: "resource",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewToolAlreadyAddedError はツールが既に取り付け済みの場合のエラーを生成する。
func NewToolAlreadyAddedError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeToolAlreadyAdded,
		Message:  fmt.Sprintf("このツールは既にプロジェクトに追加されています: %s", slug),
		Category: "resource",
		Action:   "追加済みのツール一覧を確認してください。",
	}
}

// NewToolNotFoundError はツールが取り付けられていない場合のエラーを生成する。
func NewToolNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeToolNotFound,
		Message:  fmt.Sprintf("指定されたツールはプロジェクトに追加されていません: %s", slug),
		Category: "resource",
		Action:   "ツールのスラッグを確認してください。",
	}
}

// NewSurveyNotFoundError はアンケート未検出エラーを生成する。
func NewSurveyNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeSurveyNotFound,
		Message:  fmt.Sprintf("指定されたアンケートが見つかりません: %s", slug),
		Category: "resource",
		Action:   "アンケートのURLを確認してください。",
	}
}

// NewMissingURLError はトラッキング対象URLが未指定の場合のエラーを生成する。
func NewMissingURLError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingURL,
		Message:  "URLが指定されていません。",
		Category: "validation",
		Action:   "トラッキングする遷移先URLを指定してください。",
	}
}

// NewUnsafeURLError はセキュリティポリシーでブロックされたURLのエラーを生成する。
func NewUnsafeURLError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsafeURL,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewQRIDTakenError は指定されたトラッキングIDが既に使用されている場合のエラーを生成する。
func NewQRIDTakenError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeQRIDTaken,
		Message:  fmt.Sprintf("このトラッキングIDは既に使用されています: %s", id),
		Category: "resource",
		Action:   "別のIDを指定するか、IDを省略して自動採番を利用してください。",
	}
}
