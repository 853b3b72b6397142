package model

import "time"

// Patron は図書館の利用者を表す。
// Contactは一意キーであり、同じ連絡先からは常に同じIDが解決される。
type Patron struct {
	ID        string
	Name      string
	Contact   string
	CreatedAt time.Time
}
