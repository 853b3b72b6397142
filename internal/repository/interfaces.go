// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/bookloan/internal/model"
)

var (
	// ErrOpenLoanExists は同じ本に未返却の貸出がすでに存在する場合に返される。
	ErrOpenLoanExists = errors.New("open loan already exists for book")

	// ErrLoanAlreadyClosed は返却済みの貸出を再度クローズしようとした場合に返される。
	ErrLoanAlreadyClosed = errors.New("loan is already closed")

	// ErrReferenceNotFound は参照先（本・利用者）が存在しない場合に返される。
	ErrReferenceNotFound = errors.New("referenced row does not exist")
)

// BookRepository は蔵書データの永続化インターフェース。
// 貸出状態の更新はLoanTx経由でのみ行い、このインターフェースには含めない。
type BookRepository interface {
	// FindByTitle はタイトル完全一致で本を取得する。見つからない場合はnilを返す。
	FindByTitle(ctx context.Context, title string) (*model.Book, error)

	// ListAll は全蔵書をタイトル順で返す。
	ListAll(ctx context.Context) ([]*model.Book, error)

	// ListAvailable は貸出可能な本をタイトル順で返す。
	ListAvailable(ctx context.Context) ([]*model.Book, error)

	// Search はタイトルまたはカテゴリに対する大文字小文字を区別しない部分一致検索を行う。
	// termが空の場合は全蔵書を返す。
	Search(ctx context.Context, term string) ([]*model.Book, error)

	// ListByCategory は指定カテゴリの本をタイトル順で返す。
	ListByCategory(ctx context.Context, category string) ([]*model.Book, error)

	// ListCategories は重複を除いたカテゴリ名を昇順で返す。
	ListCategories(ctx context.Context) ([]string, error)

	// InsertIfAbsent は同じタイトルの本が存在しない場合のみ登録する。
	// 登録した場合はtrueを返す。既存の本の状態は変更しない。
	InsertIfAbsent(ctx context.Context, book *model.Book) (bool, error)
}

// PatronRepository は利用者データの永続化インターフェース。
type PatronRepository interface {
	// FindByID は指定IDの利用者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Patron, error)

	// ResolveByContact はcandidate.Contactで利用者を検索し、存在しなければcandidateを登録する。
	// 既存の利用者が見つかった場合は保存済みの値を返し、名前は更新しない。
	// 同一連絡先に対する同時呼び出しでも利用者は1件しか作成されない。
	// 新規作成した場合はcreatedにtrueを返す。
	ResolveByContact(ctx context.Context, candidate *model.Patron) (patron *model.Patron, created bool, err error)
}

// LoanTx は1つのトランザクション内で利用できる貸出台帳の操作。
// 本の状態変更と貸出レコードの作成・クローズは必ずこのインターフェース経由で行う。
type LoanTx interface {
	// LockBookByTitle はタイトルで本を取得し、トランザクション終了まで行ロックを保持する。
	// 見つからない場合はnilを返す。
	LockBookByTitle(ctx context.Context, title string) (*model.Book, error)

	// SetBookStatus は本の貸出状態を更新する。
	SetBookStatus(ctx context.Context, bookID string, status model.BookStatus) error

	// InsertLoan は未返却の貸出レコードを作成する。
	// 同じ本に未返却の貸出が存在する場合はErrOpenLoanExistsを返す。
	InsertLoan(ctx context.Context, loan *model.Loan) error

	// LockOpenLoan はタイトルと利用者IDに一致する未返却の貸出を取得し、行ロックを保持する。
	// 見つからない場合はnilを返す。
	LockOpenLoan(ctx context.Context, title, patronID string) (*model.Loan, error)

	// CloseLoan は貸出に返却日時と延滞金を設定する。
	// すでに返却済みの場合はErrLoanAlreadyClosedを返す。
	CloseLoan(ctx context.Context, loanID string, returnedAt time.Time, penalty model.Money) error
}

// LoanRepository は貸出台帳の永続化インターフェース。
type LoanRepository interface {
	// InTx はfnを1つのアトミックな作業単位として実行する。
	// fnがエラーを返した場合、fn内の書き込みはすべて破棄される。
	InTx(ctx context.Context, fn func(tx LoanTx) error) error

	// ListByPatron は利用者の全貸出を貸出日時の降順で返す。
	ListByPatron(ctx context.Context, patronID string) ([]model.LoanWithBook, error)

	// ListOpenByPatron は利用者の未返却の貸出を返却期限の昇順で返す。
	ListOpenByPatron(ctx context.Context, patronID string) ([]model.LoanWithBook, error)
}

// ReviewRepository はレビューデータの永続化インターフェース。
type ReviewRepository interface {
	// Create はレビューを作成する。
	// 本または利用者が存在しない場合はErrReferenceNotFoundを返す。
	Create(ctx context.Context, review *model.Review) error

	// ListByBookTitle は本のレビューを投稿者名付きで作成日時の降順で返す。
	ListByBookTitle(ctx context.Context, title string) ([]model.ReviewWithPatron, error)
}
