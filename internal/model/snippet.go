// Package model defines the data structures shared across the application.
package model

import "time"

// Analysis is the structured result of an AI code review: exactly three
// labelled findings, all free text.
type Analysis struct {
	Bugs        string `json:"bugs"`
	Style       string `json:"style"`
	Explanation string `json:"explanation"`
}

// Snippet is a saved piece of code, optionally annotated with an AI review.
//
// AuthorID is set at creation and never changes afterwards; every mutation
// path checks the caller against it. AIAnalysis and UserContext are pointers
// because both are genuinely optional — a snippet created through the plain
// CRUD route has no analysis until the owner runs one.
type Snippet struct {
	ID          string    `json:"id"`
	CodeContent string    `json:"codeContent"`
	Language    string    `json:"language"`
	UserContext *string   `json:"userContext,omitempty"` // author's stated intent, fed to the AI prompt
	AIAnalysis  *Analysis `json:"aiAnalysis"`
	AuthorID    string    `json:"authorId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
