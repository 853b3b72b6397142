package database

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATEコード
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pqCode(err error) (string, string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}

// IsRetryable はトランザクション全体の再試行で解消しうるエラーかどうかを返す。
func IsRetryable(err error) bool {
	code, _, ok := pqCode(err)
	return ok && (code == codeSerializationFailure || code == codeDeadlockDetected)
}

// IsUniqueViolation は一意制約違反かどうかを返す。
// constraintが空でなければ制約名も一致する場合に限りtrueを返す。
func IsUniqueViolation(err error, constraint string) bool {
	code, name, ok := pqCode(err)
	return ok && code == codeUniqueViolation && (constraint == "" || name == constraint)
}

// IsForeignKeyViolation は外部キー制約違反かどうかを返す。
func IsForeignKeyViolation(err error) bool {
	code, _, ok := pqCode(err)
	return ok && code == codeForeignKeyViolation
}

// IsCheckViolation はCHECK制約違反（トリガーによる拒否を含む）かどうかを返す。
func IsCheckViolation(err error) bool {
	code, _, ok := pqCode(err)
	return ok && code == codeCheckViolation
}
