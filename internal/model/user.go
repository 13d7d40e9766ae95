// Package model defines the data structures shared across the application.
package model

import "time"

// User represents an account created through Google sign-in.
//
// Google is the only identity provider, so we use Google's stable subject
// identifier ("sub" claim) directly as the primary key. The sub never changes
// for a given Google account, which makes repeated sign-ins a natural upsert:
// first sign-in creates the row, later sign-ins refresh the display name only.
//
// Email and ID are immutable after creation; Name is the single field the
// identity provider is allowed to refresh on re-login.
type User struct {
	ID        string    `json:"id"`    // Google subject id, e.g. "103547991597142817347"
	Email     string    `json:"email"` // unique, set once at first sign-in
	Name      string    `json:"name"`  // display name, refreshed from Google on each sign-in
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
