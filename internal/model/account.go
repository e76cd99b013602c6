package model

import (
	"time"
)

// Account is a registered identity with its embedded photos and both sides of its
// relationship sets. An account never appears in its own Followers or Following.
type Account struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	FirstName      string    `db:"first_name" json:"firstName"`
	LastName       string    `db:"last_name" json:"lastName"`
	ProfilePicture *string   `db:"profile_picture" json:"profilePicture"`
	Photos         []Photo   `db:"-" json:"photos"`
	Followers      []int64   `db:"-" json:"followers"`
	Following      []int64   `db:"-" json:"following"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// AccountSummary is the denormalized view attached to feed items, comments and listings.
type AccountSummary struct {
	ID             int64   `db:"id" json:"id"`
	FirstName      string  `db:"first_name" json:"firstName"`
	LastName       string  `db:"last_name" json:"lastName"`
	ProfilePicture *string `db:"profile_picture" json:"profilePicture"`
}

// Counts holds the sizes of an account's relationship sets.
type Counts struct {
	FollowingCount int `json:"followingCount"`
	FollowersCount int `json:"followersCount"`
}

// RegisterRequest represents the data needed to register a new account
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"firstName" validate:"required,max=64"`
	LastName  string `json:"lastName" validate:"required,max=64"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}
