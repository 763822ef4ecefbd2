package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateKey はユニーク制約違反を表すリポジトリ層のエラー。
// サービス層はこのエラーをConflict系のAPIErrorに変換する。
var ErrDuplicateKey = errors.New("duplicate key")

// uniqueViolationCode はPostgreSQLのunique_violationエラーコード。
const uniqueViolationCode = "23505"

// isUniqueViolation はエラーがPostgreSQLのユニーク制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}
