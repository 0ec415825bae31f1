package auth

import "github.com/avtoline/avtoline-api/internal/domain/user"

type RegisterRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Name        string `json:"name" validate:"required,max=120"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type FCMTokenRequest struct {
	FCMToken string `json:"fcm_token" validate:"required"`
}

type AuthResponse struct {
	User         *user.User `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int        `json:"expires_in"`
}
