// CivicVoice | 2026
// dto.go

package user

import (
	"time"
)

// UpdateUserRequest carries the mutable profile fields. Nil means "do
// not change". Used both for self-service profile updates and for
// admin edits.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"     validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email,omitempty"    validate:"omitempty,email,max=255"`
	Phone    *string `json:"phone,omitempty"    validate:"omitempty,min=5,max=20"`
	District *string `json:"district,omitempty" validate:"omitempty,max=100"`
	Position *string `json:"position,omitempty" validate:"omitempty,max=100"`
	Party    *string `json:"party,omitempty"    validate:"omitempty,max=100"`
}

// UserResponse is the sanitized wire projection of a User.
type UserResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Phone            *string    `json:"phone,omitempty"`
	District         *string    `json:"district,omitempty"`
	Verified         bool       `json:"verified"`
	IsRepresentative bool       `json:"isRepresentative"`
	Role             string     `json:"role"`
	Position         *string    `json:"position,omitempty"`
	Party            *string    `json:"party,omitempty"`
	Rating           *float64   `json:"rating,omitempty"`
	Balance          int        `json:"balance"`
	LastActivity     *time.Time `json:"lastActivity,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

type RepresentativesResponse struct {
	Representatives []UserResponse `json:"representatives"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 50
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Phone:            u.Phone,
		District:         u.District,
		Verified:         u.Verified,
		IsRepresentative: u.IsRepresentative,
		Role:             u.Role,
		Position:         u.Position,
		Party:            u.Party,
		Rating:           u.Rating,
		Balance:          u.Balance,
		LastActivity:     u.LastActivity,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(&u))
	}
	return responses
}
