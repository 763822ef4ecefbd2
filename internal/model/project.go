// Package model はドメインモデルを定義する。
package model

import "time"

// Project はユーザーが所有する作業プロジェクトを表す。
// 1プロジェクトは必ず1ユーザーに専属する。
type Project struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectTool はプロジェクトに取り付けられたツールを表す。
// (ProjectID, ToolSlug) はユニーク。OrderIndex は追加時に
// max(既存)+1 で採番され、削除後も再利用しない。
// 連番の欠番は許容され、順序のみが不変条件となる。
type ProjectTool struct {
	ProjectID  string
	ToolSlug   string
	OrderIndex int
	CreatedAt  time.Time
}
