package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/bookloan/internal/model"
)

func TestPostgresReviewRepo_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresReviewRepo(db)
	ctx := t.Context()

	book := seedBook(t, db, "Compiler Design", "Computer Science")
	asha := seedPatron(t, db, "Asha", "asha@example.com")
	ravi := seedPatron(t, db, "Ravi", "ravi@example.com")

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &model.Review{
		ID: uuid.New().String(), BookID: book.ID, PatronID: asha.ID,
		Text: "Great", Rating: 5, CreatedAt: base,
	}))
	require.NoError(t, repo.Create(ctx, &model.Review{
		ID: uuid.New().String(), BookID: book.ID, PatronID: ravi.ID,
		Text: "Dense", Rating: 3, CreatedAt: base.Add(time.Hour),
	}))

	reviews, err := repo.ListByBookTitle(ctx, "Compiler Design")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "Ravi", reviews[0].PatronName, "新しいレビューが先頭")
	assert.Equal(t, 3, reviews[0].Rating)
	assert.Equal(t, "Asha", reviews[1].PatronName)

	none, err := repo.ListByBookTitle(ctx, "Unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostgresReviewRepo_Create_UnknownReference(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresReviewRepo(db)

	book := seedBook(t, db, "Compiler Design", "Computer Science")

	err := repo.Create(t.Context(), &model.Review{
		ID: uuid.New().String(), BookID: book.ID, PatronID: uuid.New().String(),
		Text: "x", Rating: 4, CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}
