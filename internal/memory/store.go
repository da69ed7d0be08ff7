package memory

// Store is the persistence adapter contract. Both backends (JSON file
// and SQLite) implement it with identical semantics: every mutation is
// atomic to all observers, and a write is visible to any subsequent read
// in the same request sequence.
//
// Callers are expected to have validated input already; stores only
// report NotFoundError where documented, and StorageFault for backing
// store failures.
type Store interface {
	// GetProfile returns the profile for userID, or NotFoundError.
	GetProfile(userID string) (*UserProfile, error)

	// EnsureProfile returns the existing profile or creates one with both
	// visit timestamps set to now, persisting it before returning.
	// created is true only on the creation branch.
	EnsureProfile(userID, now string) (profile *UserProfile, created bool, err error)

	// UpdateProfile applies the patch fields that are present, always
	// sets last_visit = now, and creates the profile first if absent.
	UpdateProfile(userID string, patch ProfilePatch, now string) (*UserProfile, error)

	// TouchLastVisit sets last_visit for an existing profile. No-op if
	// the profile does not exist.
	TouchLastVisit(userID, now string) error

	// AllProfiles returns every profile, in no particular order.
	AllProfiles() ([]UserProfile, error)

	// InsertConversation appends a record with a server-assigned id and
	// timestamp, and in the same commit increments the owning profile's
	// total_conversations and last_visit. The counter update silently
	// no-ops when the profile row does not exist; the record is still
	// logged either way.
	InsertConversation(p SaveConversationParams, now string) (*ConversationRecord, error)

	// ListConversations returns up to limit records for the user,
	// ordered by timestamp descending.
	ListConversations(userID string, limit int) ([]ConversationRecord, error)

	// CountConversations returns the number of logged records for the user.
	CountConversations(userID string) (int, error)

	// CountConversationsSince counts records with timestamp strictly
	// greater than since. Timestamps share one fixed-width format, so
	// string comparison is chronological.
	CountConversationsSince(userID, since string) (int, error)

	// ConversationCounts returns the per-user record counts derived from
	// the log itself.
	ConversationCounts() (map[string]int, error)

	// TotalConversations returns the global record count.
	TotalConversations() (int, error)

	Close() error
}

// newProfile builds the initial profile state for a first-seen user.
func newProfile(userID, now string) *UserProfile {
	return &UserProfile{
		UserID:     userID,
		FirstVisit: now,
		LastVisit:  now,
	}
}
