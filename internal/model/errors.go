package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// Errにはストア由来の元エラーを保持し、errors.Is/Asで辿れるようにする。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, loan, catalog, system
	Action   string // ユーザー向け対処方法
	Err      error  // 元エラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は元エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotAvailable = "NOT_AVAILABLE"
	ErrCodeNoOpenLoan   = "NO_OPEN_LOAN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeStore        = "STORE_ERROR"
)

// IsCode はエラーチェーン中に指定コードのAPIErrorが含まれるかを返す。
func IsCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewValidationError は入力不正エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewNotAvailableError は貸出不可エラーを生成する。
func NewNotAvailableError(title string) *APIError {
	return &APIError{
		Code:     ErrCodeNotAvailable,
		Message:  fmt.Sprintf("この本は現在貸出できません: %s", title),
		Category: "loan",
		Action:   "別の本を選ぶか、返却後に再度お試しください。",
	}
}

// NewNoOpenLoanError は返却対象の貸出が存在しない場合のエラーを生成する。
func NewNoOpenLoanError(title string) *APIError {
	return &APIError{
		Code:     ErrCodeNoOpenLoan,
		Message:  fmt.Sprintf("この本を借りていません: %s", title),
		Category: "loan",
		Action:   "貸出中一覧から返却する本を確認してください。",
	}
}

// NewBookNotFoundError は蔵書未検出エラーを生成する。
func NewBookNotFoundError(title string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定された本が見つかりません: %s", title),
		Category: "catalog",
		Action:   "タイトルを確認してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", category),
		Category: "catalog",
		Action:   "カテゴリ一覧から選択してください。",
	}
}

// NewPatronNotFoundError は利用者未検出エラーを生成する。
func NewPatronNotFoundError(patronID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("利用者が見つかりません: %s", patronID),
		Category: "patron",
		Action:   "名前と連絡先で再度ログインしてください。",
	}
}

// NewStoreError はストア層の失敗をラップしたエラーを生成する。
// トランザクションはロールバック済みであり、部分的な変更は残らない。
func NewStoreError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeStore,
		Message:  "データストアの処理に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      err,
	}
}

// AsStoreError はドメインエラー以外のエラーをStoreErrorに変換する。
// すでにAPIErrorであればそのまま返す。nilはnilを返す。
func AsStoreError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return NewStoreError(err)
}
