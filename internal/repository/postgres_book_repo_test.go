package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/bookloan/internal/model"
)

func TestPostgresBookRepo_FindByTitle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresBookRepo(db)
	ctx := t.Context()

	seeded := seedBook(t, db, "Compiler Design", "Computer Science")

	got, err := repo.FindByTitle(ctx, "Compiler Design")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, seeded.ID, got.ID)
	assert.Equal(t, model.BookStatusAvailable, got.Status)

	missing, err := repo.FindByTitle(ctx, "compiler design")
	require.NoError(t, err)
	assert.Nil(t, missing, "タイトルは完全一致で検索される")
}

func TestPostgresBookRepo_InsertIfAbsent_KeepsExistingRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresBookRepo(db)
	ctx := t.Context()

	original := seedBook(t, db, "Data Structures", "Computer Science")
	_, err := db.Exec(`UPDATE books SET status = 'issued' WHERE id = $1`, original.ID)
	require.NoError(t, err)

	inserted, err := repo.InsertIfAbsent(ctx, &model.Book{
		ID:        uuid.New().String(),
		Title:     "Data Structures",
		Category:  "Other",
		Status:    model.BookStatusAvailable,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.FindByTitle(ctx, "Data Structures")
	require.NoError(t, err)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, "Computer Science", got.Category)
	assert.Equal(t, model.BookStatusIssued, got.Status, "既存の貸出状態は変更されない")
}

func TestPostgresBookRepo_SearchAndListings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresBookRepo(db)
	ctx := t.Context()

	seedBook(t, db, "Operating Systems", "Computer Science")
	seedBook(t, db, "Pride and Prejudice", "Fiction")
	issued := seedBook(t, db, "100% Pure", "Fiction")
	_, err := db.Exec(`UPDATE books SET status = 'issued' WHERE id = $1`, issued.ID)
	require.NoError(t, err)

	t.Run("大文字小文字を区別しない部分一致", func(t *testing.T) {
		books, err := repo.Search(ctx, "SYSTEM")
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Operating Systems", books[0].Title)
	})

	t.Run("カテゴリにも一致する", func(t *testing.T) {
		books, err := repo.Search(ctx, "fict")
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("ワイルドカードはリテラルとして扱う", func(t *testing.T) {
		books, err := repo.Search(ctx, "%")
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "100% Pure", books[0].Title)
	})

	t.Run("空の検索語は全件", func(t *testing.T) {
		books, err := repo.Search(ctx, "")
		require.NoError(t, err)
		assert.Len(t, books, 3)
	})

	t.Run("貸出可能な本のみ", func(t *testing.T) {
		books, err := repo.ListAvailable(ctx)
		require.NoError(t, err)
		require.Len(t, books, 2)
		for _, b := range books {
			assert.True(t, b.IsAvailable())
		}
	})

	t.Run("カテゴリ一覧は重複なし昇順", func(t *testing.T) {
		cats, err := repo.ListCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Computer Science", "Fiction"}, cats)
	})

	t.Run("カテゴリ別一覧", func(t *testing.T) {
		books, err := repo.ListByCategory(ctx, "Fiction")
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.Equal(t, "100% Pure", books[0].Title)

		none, err := repo.ListByCategory(ctx, "Poetry")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
