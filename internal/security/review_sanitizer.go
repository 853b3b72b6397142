// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ReviewSanitizer は利用者が投稿したレビュー本文からHTMLマークアップを除去する。
// bluemondayのStrictPolicyを使用し、全てのタグと属性を取り除いてプレーンテキストのみを残す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はレビュー本文のサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は入力からマークアップを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// ReviewSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので複数のgoroutineから共有できる。
type ReviewSanitizer struct {
	policy *bluemonday.Policy
}

// NewReviewSanitizer はReviewSanitizerを生成する。
func NewReviewSanitizer() *ReviewSanitizer {
	return &ReviewSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxSanitizePasses は多重にエスケープされた入力に対する除去の上限回数。
const maxSanitizePasses = 8

// Sanitize はタグを除去したプレーンテキストを返す。
// StrictPolicyは本文中の&や<をエスケープするため、保存前に元の文字へ戻す。
// 戻した結果が新たなタグになり得るので、出力が変化しなくなるまで除去を繰り返す。
// 返り値は不動点なので、もう一度Sanitizeしても同じ文字列になる。
func (s *ReviewSanitizer) Sanitize(raw string) string {
	text := s.pass(raw)
	for range maxSanitizePasses {
		next := s.pass(text)
		if next == text {
			return text
		}
		text = next
	}
	// 収束しない入力はエスケープされたまま保存する
	return strings.TrimSpace(s.policy.Sanitize(text))
}

func (s *ReviewSanitizer) pass(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

var _ TextSanitizer = (*ReviewSanitizer)(nil)
