package dto

import (
	"github.com/google/uuid"
)

// UserResponse is the signed-in user as clients see it.
type UserResponse struct {
	Uid         uuid.UUID `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    *string   `json:"photo_url"`
}

type LoginResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

type OAuthCallbackRequest struct {
	Provider  string
	Code      string
	State     string
	UserAgent string
	IPAddress string
}
