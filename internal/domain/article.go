package domain

import "time"

// Article is the persisted content artifact readers see.
type Article struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	City        string    `db:"city" json:"city"`
	State       string    `db:"state" json:"state"`
	Slug        string    `db:"slug" json:"slug"`
	Theme       string    `db:"theme" json:"theme,omitempty"`
	IsToday     bool      `db:"is_today" json:"isToday"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	PublishedAt time.Time `db:"published_at" json:"publishedAt"`
}

// Draft is raw generated content before it receives an identity.
type Draft struct {
	Title string
	Body  string
}

// Validate reports whether the article can be persisted.
func (a Article) Validate() error {
	if a.Title == "" || a.Content == "" {
		return ErrMalformedOutput
	}
	if a.Slug == "" {
		return ErrEmptySlug
	}
	return nil
}

// SameDay reports whether two instants fall on the same UTC calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// DayBounds returns the [start, end) UTC interval of the day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
