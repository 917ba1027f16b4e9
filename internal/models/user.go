package models

import "time"

// User is an account stored in the account store. Username is the record key.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// WatchlistEntry is one symbol on a user's watchlist.
type WatchlistEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair is returned by login.
type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}
