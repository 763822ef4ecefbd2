// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"time"
)

// Survey はスラッグでアドレスされるアンケート定義を表す。
// 作成後は不変として扱う。DesignとQuestionsは不透明なJSONとして保持し、
// サーバー側では構造を解釈しない。
type Survey struct {
	ID          string
	Slug        string
	UserID      string
	Title       string
	Description string
	HeaderImage string
	Design      json.RawMessage
	Questions   json.RawMessage
	CreatedAt   time.Time
}

// SurveyResponse はアンケートへの匿名回答を表す。追記専用。
type SurveyResponse struct {
	ID        string
	SurveyID  string
	Answers   json.RawMessage
	CreatedAt time.Time
}
