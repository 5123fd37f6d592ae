package domain

import "time"

// User is the account record. Email is the identity key for authentication;
// TokenKey scopes the validity of every JWT issued to this user — rotating it
// invalidates all outstanding tokens at once.
type User struct {
	UserID       string     `json:"id" dynamodbav:"user_id"`
	Email        string     `json:"email" dynamodbav:"email"`
	Username     string     `json:"username" dynamodbav:"username"`
	FirstName    string     `json:"first_name" dynamodbav:"first_name"`
	LastName     string     `json:"last_name" dynamodbav:"last_name"`
	Phone        *string    `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash"`
	IsActive     bool       `json:"is_active" dynamodbav:"is_active"`
	IsStaff      bool       `json:"is_staff" dynamodbav:"is_staff"`
	TokenKey     string     `json:"-" dynamodbav:"token_key"`
	PIN          string     `json:"-" dynamodbav:"pin"`
	PINFailures  int        `json:"-" dynamodbav:"pin_failures"`
	PINSentAt    *time.Time `json:"-" dynamodbav:"pin_sent_at"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required"`
	Username  string  `json:"username" validate:"required,max=150"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone"`
}

type ConfirmRequest struct {
	Email string `json:"email" validate:"required,email"`
	PIN   string `json:"pin" validate:"required"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// TokenPair is the result of a successful sign-in.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
