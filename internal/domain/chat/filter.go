package chat

import "time"

// MessageFilter narrows a message listing. Zero values mean "no constraint".
type MessageFilter struct {
	SenderID       string
	ConversationID string
	SentAfter      *time.Time
	SentBefore     *time.Time
	Page           int
	PageSize       int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging values to their defaults and limits.
func (f *MessageFilter) Normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// Offset returns the row offset of the current page.
func (f *MessageFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
