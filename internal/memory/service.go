package memory

import (
	"sort"
	"strings"
	"time"
)

// defaultSearchLimit applies when a search request omits the limit or
// supplies a non-positive one.
const defaultSearchLimit = 50

// recencyWindow is the trailing window for "recent" per-user stats.
const recencyWindow = 7 * 24 * time.Hour

// Service implements the memory operations on top of a Store. It owns
// input validation and the derivation of response payloads; all durable
// state flows through the store.
type Service struct {
	store Store
}

// NewService creates a Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetContext returns the assembled context payload for a user, creating
// the profile on first sight. For a returning user it fetches the recent
// window, refreshes last_visit and builds the summary text.
func (s *Service) GetContext(userID string) (*ContextResult, error) {
	if userID == "" {
		return nil, Validationf("user_id is required")
	}

	now := Now()
	u, created, err := s.store.EnsureProfile(userID, now)
	if err != nil {
		return nil, err
	}

	if created {
		return &ContextResult{
			IsNewUser:         true,
			UserID:            userID,
			Context:           newUserContext,
			SuggestedResponse: newUserGreeting,
		}, nil
	}

	recent, err := s.store.ListConversations(userID, contextWindow)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchLastVisit(userID, now); err != nil {
		return nil, err
	}

	return &ContextResult{
		IsNewUser:                false,
		UserID:                   userID,
		Name:                     u.Name,
		PersonalityType:          u.PersonalityType,
		CommunicationStyle:       u.CommunicationStyle,
		OnboardingComplete:       u.OnboardingComplete,
		TotalConversations:       u.TotalConversations,
		Context:                  BuildContext(u, recent),
		RecentConversationsCount: len(recent),
		Preferences:              u.Preferences,
	}, nil
}

// SaveConversation validates and appends one exchange. The record and
// the profile counter commit together or not at all.
func (s *Service) SaveConversation(p SaveConversationParams) (*ConversationRecord, error) {
	if p.UserID == "" || p.UserMessage == "" || p.OraResponse == "" {
		return nil, Validationf("user_id, user_message, and ora_response are required")
	}
	return s.store.InsertConversation(p, Now())
}

// UpdateProfile applies a partial profile update, creating the profile
// if absent. Returns the stored profile and the names of the fields
// that were applied.
func (s *Service) UpdateProfile(userID string, patch ProfilePatch) (*UserProfile, []string, error) {
	if userID == "" {
		return nil, nil, Validationf("user_id is required")
	}
	if patch.Empty() {
		return nil, nil, Validationf("no updatable profile fields in request")
	}

	u, err := s.store.UpdateProfile(userID, patch, Now())
	if err != nil {
		return nil, nil, err
	}
	return u, patch.Fields(), nil
}

// SearchConversations returns up to limit records for the user, newest
// first. A non-positive limit falls back to the default of 50.
func (s *Service) SearchConversations(userID string, limit int) (*SearchResult, error) {
	if userID == "" {
		return nil, Validationf("user_id is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	recs, err := s.store.ListConversations(userID, limit)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []ConversationRecord{}
	}
	return &SearchResult{Results: recs, Count: len(recs), UserID: userID}, nil
}

// UserStats returns the per-user statistics view. Counts come from the
// conversation log itself, not the stored counter. Unknown users get a
// NotFoundError with no side effects.
func (s *Service) UserStats(userID string) (*UserStats, error) {
	if userID == "" {
		return nil, Validationf("user_id is required")
	}

	u, err := s.store.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountConversations(userID)
	if err != nil {
		return nil, err
	}
	weekAgo := nowFunc().Add(-recencyWindow).Format(TimeLayout)
	recent, err := s.store.CountConversationsSince(userID, weekAgo)
	if err != nil {
		return nil, err
	}

	return &UserStats{
		UserID:              userID,
		Name:                u.Name,
		TotalConversations:  total,
		RecentConversations: recent,
		FirstVisit:          u.FirstVisit,
		LastVisit:           u.LastVisit,
		OnboardingComplete:  u.OnboardingComplete,
	}, nil
}

// AllUsers returns the admin overview: every profile annotated with its
// derived conversation count, sorted by last_visit descending (missing
// last_visit sorts last), plus global stats.
func (s *Service) AllUsers() (*Overview, error) {
	profiles, err := s.store.AllProfiles()
	if err != nil {
		return nil, err
	}
	counts, err := s.store.ConversationCounts()
	if err != nil {
		return nil, err
	}
	totalConvs, err := s.store.TotalConversations()
	if err != nil {
		return nil, err
	}

	users := make([]AdminUser, 0, len(profiles))
	today := Today()
	activeToday := 0
	for _, u := range profiles {
		users = append(users, AdminUser{UserProfile: u, ActualConversations: counts[u.UserID]})
		if strings.HasPrefix(u.LastVisit, today) {
			activeToday++
		}
	}

	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i].LastVisit, users[j].LastVisit
		if (a == "") != (b == "") {
			return b == ""
		}
		return a > b
	})

	return &Overview{
		Users: users,
		Stats: GlobalStats{
			TotalUsers:         len(users),
			TotalConversations: totalConvs,
			ActiveToday:        activeToday,
		},
	}, nil
}
