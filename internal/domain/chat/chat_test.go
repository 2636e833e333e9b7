package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name      string
		count     int64
		page      int
		size      int
		wantPages int
	}{
		{name: "empty", count: 0, page: 1, size: 20, wantPages: 0},
		{name: "exact", count: 40, page: 2, size: 20, wantPages: 2},
		{name: "partial last page", count: 41, page: 1, size: 20, wantPages: 3},
		{name: "zero size", count: 10, page: 1, size: 0, wantPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.count, tt.page, tt.size)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.count, p.Count)
		})
	}
}

func TestMessageFilter_Normalize(t *testing.T) {
	f := MessageFilter{}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = MessageFilter{Page: 3, PageSize: 500}
	f.Normalize()
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, 200, f.Offset())
}

func TestConversation_HasParticipant(t *testing.T) {
	c := Conversation{Participants: []User{{ID: "a"}, {ID: "b"}}}
	assert.True(t, c.HasParticipant("b"))
	assert.False(t, c.HasParticipant("c"))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleGuest.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("owner").Valid())
}
