// Package model はドメインモデルを定義する。
package model

import "time"

// QREntry は短縮IDから遷移先URLへのトラッキングエントリを表す。
// 台帳ファイル（JSON）にID→エントリのマッピングとして永続化される。
// 不変条件: 書き込み完了時点で常に Count == len(Scans)。
type QREntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId,omitempty"`
	OriginalURL string    `json:"originalUrl"`
	Count       int       `json:"count"`
	Scans       []QRScan  `json:"scans"`
	CreatedAt   time.Time `json:"createdAt"`

	// Version は書き込みのたびにインクリメントされる監査用トークン。
	// プロセス内の競合はサービス層のmutexで直列化されるため版比較は
	// 行わず、プロセス間で更新が失われた場合の検出材料として残す。
	Version int64 `json:"version"`
}

// QRScan はリダイレクト時に記録される1回のスキャンイベントを表す。
type QRScan struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Referer   string    `json:"referer"`
}

// QRStats はエントリのスキャン統計を表す。
// 存在しないIDに対してはゼロ値の統計を返す（エラーにしない）。
type QRStats struct {
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"createdAt"`
	Scans     []QRScan  `json:"scans"`
}
