// Package memory implements the personalization memory core for ORA.
//
// It persists per-user profiles and an append-only conversation log, and
// reconstructs the textual context used to prime the assistant's responses.
// Two interchangeable storage backends exist (JSON file and SQLite); both
// satisfy the Store interface and identical semantics.
package memory

import (
	"encoding/json"
	"time"
)

// TimeLayout is the timestamp format used everywhere in the store.
// Six microsecond digits keep the width fixed, so lexicographic order
// on timestamp strings equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000"

// nowFunc is a package-level var to allow test injection.
var nowFunc = time.Now

// Now returns the current timestamp in the store's canonical format.
func Now() string {
	return nowFunc().Format(TimeLayout)
}

// Today returns the server-local calendar date (YYYY-MM-DD).
func Today() string {
	return nowFunc().Format("2006-01-02")
}

// ─── Types ───────────────────────────────────────────────────────────────────

// UserProfile is the persistent per-user state.
type UserProfile struct {
	UserID             string          `json:"user_id"`
	Name               *string         `json:"name"`
	PersonalityType    *string         `json:"personality_type"`
	CommunicationStyle *string         `json:"communication_style"`
	FirstVisit         string          `json:"first_visit"`
	LastVisit          string          `json:"last_visit"`
	OnboardingComplete bool            `json:"onboarding_complete"`
	TotalConversations int             `json:"total_conversations"`
	Preferences        json.RawMessage `json:"preferences"`
}

// ConversationRecord is one logged exchange with metadata. Records are
// immutable after creation and never deleted by the core.
type ConversationRecord struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_id"`
	Timestamp   string `json:"timestamp"`
	UserMessage string `json:"user_message"`
	OraResponse string `json:"ora_response"`
	Emotion     string `json:"emotion"`
	Topic       string `json:"topic"`
	SessionID   string `json:"session_id"`
}

// SaveConversationParams holds the input for appending a conversation.
type SaveConversationParams struct {
	UserID      string `json:"user_id"`
	UserMessage string `json:"user_message"`
	OraResponse string `json:"ora_response"`
	Emotion     string `json:"emotion,omitempty"`
	Topic       string `json:"topic,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// ContextResult is the assembled context payload for one user.
type ContextResult struct {
	IsNewUser                bool            `json:"is_new_user"`
	UserID                   string          `json:"user_id"`
	Name                     *string         `json:"name,omitempty"`
	PersonalityType          *string         `json:"personality_type,omitempty"`
	CommunicationStyle       *string         `json:"communication_style,omitempty"`
	OnboardingComplete       bool            `json:"onboarding_complete"`
	TotalConversations       int             `json:"total_conversations"`
	Context                  string          `json:"context"`
	SuggestedResponse        string          `json:"suggested_response,omitempty"`
	RecentConversationsCount int             `json:"recent_conversations_count"`
	Preferences              json.RawMessage `json:"preferences,omitempty"`
}

// UserStats holds the per-user statistics view.
type UserStats struct {
	UserID              string  `json:"user_id"`
	Name                *string `json:"name"`
	TotalConversations  int     `json:"total_conversations"`
	RecentConversations int     `json:"recent_conversations"`
	FirstVisit          string  `json:"first_visit"`
	LastVisit           string  `json:"last_visit"`
	OnboardingComplete  bool    `json:"onboarding_complete"`
}

// AdminUser is a profile annotated with its derived conversation count.
// The count is derived from the log, not the stored counter, so the admin
// view reflects reality even if counter and log ever desync.
type AdminUser struct {
	UserProfile
	ActualConversations int `json:"actual_conversations"`
}

// GlobalStats holds cross-user aggregate counts.
type GlobalStats struct {
	TotalUsers         int `json:"total_users"`
	TotalConversations int `json:"total_conversations"`
	ActiveToday        int `json:"active_today"`
}

// Overview is the full admin view: every profile plus global stats.
type Overview struct {
	Users []AdminUser `json:"users"`
	Stats GlobalStats `json:"stats"`
}

// SearchResult holds a user-scoped conversation listing.
type SearchResult struct {
	Results []ConversationRecord `json:"results"`
	Count   int                  `json:"count"`
	UserID  string               `json:"user_id"`
}
