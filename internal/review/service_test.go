package review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/bookloan/internal/model"
	"github.com/hitoshi/bookloan/internal/repository/memstore"
	"github.com/hitoshi/bookloan/internal/security"
)

const patronAID = "6f1c2b1e-8d3a-4c55-9a0e-1b2c3d4e5f60"

// --- モック ---

type mockReviewRepo struct {
	createFn func(ctx context.Context, review *model.Review) error
}

func (m *mockReviewRepo) Create(ctx context.Context, review *model.Review) error {
	return m.createFn(ctx, review)
}
func (m *mockReviewRepo) ListByBookTitle(ctx context.Context, title string) ([]model.ReviewWithPatron, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	if _, err := store.Books().InsertIfAbsent(ctx, &model.Book{
		ID: "book-cd", Title: "Compiler Design", Category: "Computer Science", Status: model.BookStatusAvailable,
	}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Patrons().ResolveByContact(ctx, &model.Patron{ID: patronAID, Name: "Asha", Contact: "a@example.com"}); err != nil {
		t.Fatal(err)
	}
	return NewService(store.Reviews(), store.Books(), security.NewReviewSanitizer(), nil), store
}

// --- テスト ---

func TestSubmit_RatingBounds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, rating := range []int{0, 6, -1, 100} {
		_, err := svc.Submit(ctx, "Compiler Design", patronAID, "Good", rating)
		if !model.IsCode(err, model.ErrCodeValidation) {
			t.Errorf("rating %d: expected VALIDATION_ERROR, got %v", rating, err)
		}
	}
	for _, rating := range []int{1, 5} {
		if _, err := svc.Submit(ctx, "Compiler Design", patronAID, "Good", rating); err != nil {
			t.Errorf("rating %d: %v", rating, err)
		}
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		title    string
		patronID string
		text     string
	}{
		{"本文が空", "Compiler Design", patronAID, ""},
		{"本文が空白のみ", "Compiler Design", patronAID, "   "},
		{"本文がタグのみ", "Compiler Design", patronAID, "<b></b>"},
		{"本文が長すぎる", "Compiler Design", patronAID, strings.Repeat("x", maxTextLength+1)},
		{"存在しない本", "Unknown", patronAID, "Good"},
		{"存在しない利用者", "Compiler Design", "5e4d3c2b-1a09-4f8e-8d7c-6b5a49382716", "Good"},
		{"UUIDでない利用者ID", "Compiler Design", "patron-x", "Good"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tt.title, tt.patronID, tt.text, 3)
			if !model.IsCode(err, model.ErrCodeValidation) {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestSubmit_ThenListNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	if _, err := svc.Submit(ctx, "Compiler Design", patronAID, "first", 3); err != nil {
		t.Fatal(err)
	}
	r, err := svc.Submit(ctx, "Compiler Design", patronAID, "  <i>second</i> ", 4)
	if err != nil {
		t.Fatal(err)
	}
	if r.Text != "second" {
		t.Errorf("Text = %q, want sanitised %q", r.Text, "second")
	}

	list, err := svc.ListFor(ctx, "Compiler Design")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Text != "second" || list[1].Text != "first" {
		t.Errorf("not newest first: %q, %q", list[0].Text, list[1].Text)
	}
	if list[1].Rating != 3 || list[0].PatronName != "Asha" {
		t.Errorf("unexpected review: %+v", list[1])
	}
}

func TestListFor_UnknownBook(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListFor(context.Background(), "Unknown")
	if !model.IsCode(err, model.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestListFor_NoReviews(t *testing.T) {
	svc, _ := newTestService(t)
	list, err := svc.ListFor(context.Background(), "Compiler Design")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected no reviews, got %v", list)
	}
}

func TestSubmit_StoreError(t *testing.T) {
	_, store := newTestService(t)
	cause := errors.New("disk full")
	svc := NewService(&mockReviewRepo{
		createFn: func(ctx context.Context, review *model.Review) error { return cause },
	}, store.Books(), security.NewReviewSanitizer(), nil)

	_, err := svc.Submit(context.Background(), "Compiler Design", patronAID, "Good", 3)
	if !model.IsCode(err, model.ErrCodeStore) || !errors.Is(err, cause) {
		t.Errorf("expected STORE_ERROR wrapping cause, got %v", err)
	}
}

func TestSubmit_MalformedPatronID_DoesNotReachStore(t *testing.T) {
	_, store := newTestService(t)
	svc := NewService(&mockReviewRepo{
		createFn: func(ctx context.Context, review *model.Review) error {
			t.Error("Create must not be called for a malformed patron id")
			return errors.New("invalid input syntax for type uuid")
		},
	}, store.Books(), security.NewReviewSanitizer(), nil)

	_, err := svc.Submit(context.Background(), "Compiler Design", "not-a-uuid", "Good", 3)
	if !model.IsCode(err, model.ErrCodeValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}
