// Package memstore はリポジトリインターフェースのインメモリ実装を提供する。
// テストとデータベースなしでの動作確認に使用する。
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/bookloan/internal/model"
	"github.com/hitoshi/bookloan/internal/repository"
)

// Store は全エンティティを1つのミューテックスで保護するインメモリストア。
// 貸出トランザクションはミューテックスを保持したまま実行され、
// 変更はステージングされてfnが成功した場合にのみ反映される。
type Store struct {
	mu sync.Mutex

	books        map[string]*model.Book
	bookByTitle  map[string]string
	patrons      map[string]*model.Patron
	patronByMail map[string]string
	loans        []*model.Loan
	reviews      []*model.Review
}

// New は空のStoreを生成する。
func New() *Store {
	return &Store{
		books:        make(map[string]*model.Book),
		bookByTitle:  make(map[string]string),
		patrons:      make(map[string]*model.Patron),
		patronByMail: make(map[string]string),
	}
}

// Books は蔵書リポジトリとしてのビューを返す。
func (s *Store) Books() repository.BookRepository { return (*bookRepo)(s) }

// Patrons は利用者リポジトリとしてのビューを返す。
func (s *Store) Patrons() repository.PatronRepository { return (*patronRepo)(s) }

// Loans は貸出台帳リポジトリとしてのビューを返す。
func (s *Store) Loans() repository.LoanRepository { return (*loanRepo)(s) }

// Reviews はレビューリポジトリとしてのビューを返す。
func (s *Store) Reviews() repository.ReviewRepository { return (*reviewRepo)(s) }

// --- books ---

type bookRepo Store

func (r *bookRepo) FindByTitle(ctx context.Context, title string) (*model.Book, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.bookByTitle[title]; ok {
		b := *s.books[id]
		return &b, nil
	}
	return nil, nil
}

func (r *bookRepo) ListAll(ctx context.Context) ([]*model.Book, error) {
	return (*Store)(r).filterBooks(func(*model.Book) bool { return true }), nil
}

func (r *bookRepo) ListAvailable(ctx context.Context) ([]*model.Book, error) {
	return (*Store)(r).filterBooks((*model.Book).IsAvailable), nil
}

func (r *bookRepo) Search(ctx context.Context, term string) ([]*model.Book, error) {
	needle := strings.ToLower(term)
	return (*Store)(r).filterBooks(func(b *model.Book) bool {
		return strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.Category), needle)
	}), nil
}

func (r *bookRepo) ListByCategory(ctx context.Context, category string) ([]*model.Book, error) {
	return (*Store)(r).filterBooks(func(b *model.Book) bool { return b.Category == category }), nil
}

func (r *bookRepo) ListCategories(ctx context.Context) ([]string, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	var cats []string
	for _, b := range s.books {
		if !slices.Contains(cats, b.Category) {
			cats = append(cats, b.Category)
		}
	}
	slices.Sort(cats)
	return cats, nil
}

func (r *bookRepo) InsertIfAbsent(ctx context.Context, book *model.Book) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookByTitle[book.Title]; ok {
		return false, nil
	}
	b := *book
	s.books[b.ID] = &b
	s.bookByTitle[b.Title] = b.ID
	return true, nil
}

func (s *Store) filterBooks(keep func(*model.Book) bool) []*model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Book
	for _, b := range s.books {
		if keep(b) {
			c := *b
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.Book) int { return cmp.Compare(a.Title, b.Title) })
	return out
}

// --- patrons ---

type patronRepo Store

func (r *patronRepo) FindByID(ctx context.Context, id string) (*model.Patron, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.patrons[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (r *patronRepo) ResolveByContact(ctx context.Context, candidate *model.Patron) (*model.Patron, bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.patronByMail[candidate.Contact]; ok {
		c := *s.patrons[id]
		return &c, false, nil
	}
	p := *candidate
	s.patrons[p.ID] = &p
	s.patronByMail[p.Contact] = p.ID
	c := p
	return &c, true, nil
}

// --- reviews ---

type reviewRepo Store

func (r *reviewRepo) Create(ctx context.Context, review *model.Review) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[review.BookID]; !ok {
		return repository.ErrReferenceNotFound
	}
	if _, ok := s.patrons[review.PatronID]; !ok {
		return repository.ErrReferenceNotFound
	}
	rv := *review
	s.reviews = append(s.reviews, &rv)
	return nil
}

func (r *reviewRepo) ListByBookTitle(ctx context.Context, title string) ([]model.ReviewWithPatron, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	bookID, ok := s.bookByTitle[title]
	if !ok {
		return nil, nil
	}
	var out []model.ReviewWithPatron
	// 挿入順の逆から走査し、作成日時が同じ場合も後に投稿したものを先にする
	for i := len(s.reviews) - 1; i >= 0; i-- {
		rv := s.reviews[i]
		if rv.BookID != bookID {
			continue
		}
		out = append(out, model.ReviewWithPatron{Review: *rv, PatronName: s.patrons[rv.PatronID].Name})
	}
	slices.SortStableFunc(out, func(a, b model.ReviewWithPatron) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// --- loans ---

type loanRepo Store

func (r *loanRepo) InTx(ctx context.Context, fn func(tx repository.LoanTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &loanTx{
		s:        s,
		statuses: make(map[string]model.BookStatus),
		closed:   make(map[string]closeRecord),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (r *loanRepo) ListByPatron(ctx context.Context, patronID string) ([]model.LoanWithBook, error) {
	out := (*Store)(r).patronLoans(patronID, false)
	slices.SortStableFunc(out, func(a, b model.LoanWithBook) int {
		return b.IssuedAt.Compare(a.IssuedAt)
	})
	return out, nil
}

func (r *loanRepo) ListOpenByPatron(ctx context.Context, patronID string) ([]model.LoanWithBook, error) {
	out := (*Store)(r).patronLoans(patronID, true)
	slices.SortStableFunc(out, func(a, b model.LoanWithBook) int {
		return a.DueAt.Compare(b.DueAt)
	})
	return out, nil
}

// CountOverdue はnow時点で返却期限を過ぎている未返却の貸出数を返す。
func (r *loanRepo) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.loans {
		if l.IsOpen() && l.DueAt.Before(now) {
			n++
		}
	}
	return n, nil
}

func (s *Store) patronLoans(patronID string, openOnly bool) []model.LoanWithBook {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.LoanWithBook
	for i := len(s.loans) - 1; i >= 0; i-- {
		l := s.loans[i]
		if l.PatronID != patronID || (openOnly && !l.IsOpen()) {
			continue
		}
		b := s.books[l.BookID]
		lw := model.LoanWithBook{Loan: *l, BookTitle: b.Title, BookCategory: b.Category}
		if l.ReturnedAt != nil {
			t := *l.ReturnedAt
			lw.ReturnedAt = &t
		}
		out = append(out, lw)
	}
	return out
}

type closeRecord struct {
	returnedAt time.Time
	penalty    model.Money
}

// loanTx はStoreのミューテックスを保持した状態で使われるステージング用トランザクション。
type loanTx struct {
	s        *Store
	statuses map[string]model.BookStatus
	inserted []*model.Loan
	closed   map[string]closeRecord
}

func (t *loanTx) LockBookByTitle(ctx context.Context, title string) (*model.Book, error) {
	id, ok := t.s.bookByTitle[title]
	if !ok {
		return nil, nil
	}
	b := *t.s.books[id]
	if st, ok := t.statuses[id]; ok {
		b.Status = st
	}
	return &b, nil
}

func (t *loanTx) SetBookStatus(ctx context.Context, bookID string, status model.BookStatus) error {
	if _, ok := t.s.books[bookID]; !ok {
		return repository.ErrReferenceNotFound
	}
	t.statuses[bookID] = status
	return nil
}

func (t *loanTx) InsertLoan(ctx context.Context, loan *model.Loan) error {
	if _, ok := t.s.books[loan.BookID]; !ok {
		return repository.ErrReferenceNotFound
	}
	if _, ok := t.s.patrons[loan.PatronID]; !ok {
		return repository.ErrReferenceNotFound
	}
	for _, l := range t.loans() {
		if l.BookID == loan.BookID && t.isOpen(l) {
			return repository.ErrOpenLoanExists
		}
	}
	l := *loan
	l.ReturnedAt = nil
	l.Penalty = 0
	t.inserted = append(t.inserted, &l)
	return nil
}

func (t *loanTx) LockOpenLoan(ctx context.Context, title, patronID string) (*model.Loan, error) {
	bookID, ok := t.s.bookByTitle[title]
	if !ok {
		return nil, nil
	}
	for _, l := range t.loans() {
		if l.BookID == bookID && l.PatronID == patronID && t.isOpen(l) {
			c := *l
			return &c, nil
		}
	}
	return nil, nil
}

func (t *loanTx) CloseLoan(ctx context.Context, loanID string, returnedAt time.Time, penalty model.Money) error {
	for _, l := range t.loans() {
		if l.ID != loanID {
			continue
		}
		if !t.isOpen(l) {
			return repository.ErrLoanAlreadyClosed
		}
		t.closed[loanID] = closeRecord{returnedAt: returnedAt, penalty: penalty}
		return nil
	}
	return repository.ErrReferenceNotFound
}

// loans はコミット済みとステージング中の貸出を合わせて返す。
func (t *loanTx) loans() []*model.Loan {
	return slices.Concat(t.s.loans, t.inserted)
}

func (t *loanTx) isOpen(l *model.Loan) bool {
	if _, ok := t.closed[l.ID]; ok {
		return false
	}
	return l.IsOpen()
}

func (t *loanTx) commit() {
	for id, st := range t.statuses {
		t.s.books[id].Status = st
	}
	t.s.loans = append(t.s.loans, t.inserted...)
	for _, l := range t.s.loans {
		if rec, ok := t.closed[l.ID]; ok {
			returnedAt := rec.returnedAt
			l.ReturnedAt = &returnedAt
			l.Penalty = rec.penalty
		}
	}
}

// compile-time interface check
var (
	_ repository.BookRepository   = (*bookRepo)(nil)
	_ repository.PatronRepository = (*patronRepo)(nil)
	_ repository.LoanRepository   = (*loanRepo)(nil)
	_ repository.ReviewRepository = (*reviewRepo)(nil)
	_ repository.LoanTx           = (*loanTx)(nil)
)
