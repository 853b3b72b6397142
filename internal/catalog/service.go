// Package catalog は蔵書の参照と初期登録のドメインロジックを提供する。
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookloan/internal/model"
	"github.com/hitoshi/bookloan/internal/repository"
)

// Service は蔵書カタログのサービス層。
// 本の貸出状態は変更しない。状態の更新は貸出台帳のトランザクション内でのみ行われる。
type Service struct {
	books repository.BookRepository
	now   func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(books repository.BookRepository) *Service {
	return &Service{
		books: books,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ListAvailable は貸出可能な本をタイトル順で返す。
func (s *Service) ListAvailable(ctx context.Context) ([]*model.Book, error) {
	books, err := s.books.ListAvailable(ctx)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	return books, nil
}

// ListAll は全蔵書をタイトル順で返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Book, error) {
	books, err := s.books.ListAll(ctx)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	return books, nil
}

// Search はタイトルまたはカテゴリに検索語を含む本を返す。大文字小文字は区別しない。
// 検索語が空の場合は全蔵書を返す。
func (s *Service) Search(ctx context.Context, term string) ([]*model.Book, error) {
	books, err := s.books.Search(ctx, strings.TrimSpace(term))
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	return books, nil
}

// ListCategories はカテゴリ名を重複なしの昇順で返す。
func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := s.books.ListCategories(ctx)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	return cats, nil
}

// ListByCategory は指定カテゴリの本を返す。
// カテゴリは蔵書から導出されるため、本が1冊もないカテゴリは存在しないものとして扱う。
func (s *Service) ListByCategory(ctx context.Context, category string) ([]*model.Book, error) {
	books, err := s.books.ListByCategory(ctx, category)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	if len(books) == 0 {
		return nil, model.NewCategoryNotFoundError(category)
	}
	return books, nil
}

// FindByTitle はタイトル完全一致で本を返す。
func (s *Service) FindByTitle(ctx context.Context, title string) (*model.Book, error) {
	book, err := s.books.FindByTitle(ctx, title)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(title)
	}
	return book, nil
}

// Seed は未登録のタイトルのみを貸出可能な状態で登録し、登録件数を返す。
// 既に存在するタイトルは状態を含めて変更しない。何度実行しても結果は同じになる。
func (s *Service) Seed(ctx context.Context, entries []SeedBook) (int, error) {
	for i, e := range entries {
		if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Category) == "" {
			return 0, model.NewValidationError(fmt.Sprintf("seed entry %d: title and category are required", i+1))
		}
	}

	inserted := 0
	for _, e := range entries {
		ok, err := s.books.InsertIfAbsent(ctx, &model.Book{
			ID:        uuid.New().String(),
			Title:     strings.TrimSpace(e.Title),
			Category:  strings.TrimSpace(e.Category),
			Status:    model.BookStatusAvailable,
			CreatedAt: s.now(),
		})
		if err != nil {
			return inserted, model.NewStoreError(err)
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}
