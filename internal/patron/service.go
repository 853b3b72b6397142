// Package patron は利用者の識別と登録のドメインロジックを提供する。
package patron

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookloan/internal/model"
	"github.com/hitoshi/bookloan/internal/repository"
)

const (
	maxNameLength    = 100
	maxContactLength = 255
)

// Service は利用者ディレクトリのサービス層。
type Service struct {
	patrons repository.PatronRepository
	now     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(patrons repository.PatronRepository) *Service {
	return &Service{
		patrons: patrons,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Resolve は名前と連絡先から利用者を解決する。
// 連絡先に一致する利用者がいればそれを返し、いなければ新規に登録する。
// 既存利用者の名前は、異なる名前で呼ばれても最初に登録した名前のまま変更しない。
func (s *Service) Resolve(ctx context.Context, name, contact string) (*model.Patron, error) {
	name = strings.TrimSpace(name)
	contact = NormalizeContact(contact)

	if name == "" || contact == "" {
		return nil, model.NewValidationError("name and contact are required")
	}
	if len([]rune(name)) > maxNameLength {
		return nil, model.NewValidationError("name is too long")
	}
	if len([]rune(contact)) > maxContactLength {
		return nil, model.NewValidationError("contact is too long")
	}

	p, created, err := s.patrons.ResolveByContact(ctx, &model.Patron{
		ID:        uuid.New().String(),
		Name:      name,
		Contact:   contact,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	if created {
		slog.Info("patron registered", slog.String("patron_id", p.ID))
	}
	return p, nil
}

// Get は指定IDの利用者を返す。存在しない場合はNotFoundErrorを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Patron, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewPatronNotFoundError(id)
	}
	p, err := s.patrons.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	if p == nil {
		return nil, model.NewPatronNotFoundError(id)
	}
	return p, nil
}

// NormalizeContact は連絡先を比較用の正規形（前後空白除去・小文字化）に変換する。
func NormalizeContact(contact string) string {
	return strings.ToLower(strings.TrimSpace(contact))
}
