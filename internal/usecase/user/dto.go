package user

import "messaging-service/internal/domain/chat"

// SearchLimit caps the number of users returned by Search.
const SearchLimit = 10

// MinSearchLength is the shortest accepted search query.
const MinSearchLength = 2

// RegisterRequest represents the payload for creating a new account.
type RegisterRequest struct {
	FirstName   string `validate:"required,max=150"`
	LastName    string `validate:"required,max=150"`
	Email       string `validate:"required,email,max=254"`
	Password    string `validate:"required,min=8,max=128"`
	PhoneNumber string `validate:"omitempty,max=20"`
	Role        string `validate:"omitempty,oneof=guest host admin"`
}

// UpdateRequest represents a full or partial profile update. Nil fields are left unchanged.
type UpdateRequest struct {
	FirstName   *string `validate:"omitempty,min=1,max=150"`
	LastName    *string `validate:"omitempty,min=1,max=150"`
	Email       *string `validate:"omitempty,email,max=254"`
	Password    *string `validate:"omitempty,min=8,max=128"`
	PhoneNumber *string `validate:"omitempty,max=20"`
	Role        *string `validate:"omitempty,oneof=guest host admin"`
}

func (in UpdateRequest) apply(u *chat.User) {
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Email != nil {
		u.Email = normalizeEmail(*in.Email)
	}
	if in.PhoneNumber != nil {
		u.PhoneNumber = *in.PhoneNumber
	}
	if in.Role != nil {
		u.Role = chat.Role(*in.Role)
	}
}
