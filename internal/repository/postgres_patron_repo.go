package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bookloan/internal/model"
)

// PostgresPatronRepo はPostgreSQLを使用した利用者リポジトリ。
type PostgresPatronRepo struct {
	db *sql.DB
}

// NewPostgresPatronRepo はPostgresPatronRepoを生成する。
func NewPostgresPatronRepo(db *sql.DB) *PostgresPatronRepo {
	return &PostgresPatronRepo{db: db}
}

// FindByID は指定IDの利用者を取得する。見つからない場合はnilを返す。
func (r *PostgresPatronRepo) FindByID(ctx context.Context, id string) (*model.Patron, error) {
	p := &model.Patron{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, contact, created_at FROM patrons WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Contact, &p.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("利用者の取得に失敗しました: %w", err)
	}
	return p, nil
}

// ResolveByContact は連絡先で利用者を解決し、存在しなければ登録する。
// UNIQUE(contact)制約を利用したINSERT ON CONFLICTの1文で実行するため、
// 同時に初回アクセスがあっても利用者は1件しか作成されない。
// DO UPDATEは既存行を返すためだけのもので、保存済みの名前は変更しない。
func (r *PostgresPatronRepo) ResolveByContact(ctx context.Context, candidate *model.Patron) (*model.Patron, bool, error) {
	p := &model.Patron{}
	var inserted bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO patrons (id, name, contact, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (contact) DO UPDATE SET contact = EXCLUDED.contact
		 RETURNING id, name, contact, created_at, (xmax = 0) AS inserted`,
		candidate.ID, candidate.Name, candidate.Contact, candidate.CreatedAt,
	).Scan(&p.ID, &p.Name, &p.Contact, &p.CreatedAt, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("利用者の解決に失敗しました: %w", err)
	}
	return p, inserted, nil
}

// compile-time interface check
var _ PatronRepository = (*PostgresPatronRepo)(nil)
