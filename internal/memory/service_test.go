package memory_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/oralabs/ora-memory/internal/memory"
)

func newTestService(t *testing.T) *memory.Service {
	t.Helper()
	s, err := memory.NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return memory.NewService(s)
}

func newFileService(t *testing.T) *memory.Service {
	t.Helper()
	s, err := memory.NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return memory.NewService(s)
}

// ─── GetContext ─────────────────────────────────────────────────────────────

func TestGetContext_NewUserExactlyOnce(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.GetContext("fresh")
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if !first.IsNewUser {
		t.Error("first call: IsNewUser = false, want true")
	}
	if first.Context != "New user - start onboarding" {
		t.Errorf("Context = %q", first.Context)
	}
	if first.SuggestedResponse != "Hi! I'm ORA, your wellness companion. What's your name?" {
		t.Errorf("SuggestedResponse = %q", first.SuggestedResponse)
	}
	if first.OnboardingComplete || first.TotalConversations != 0 {
		t.Error("new user payload must report onboarding false and zero conversations")
	}

	second, err := svc.GetContext("fresh")
	if err != nil {
		t.Fatalf("second GetContext: %v", err)
	}
	if second.IsNewUser {
		t.Error("second call: IsNewUser = true, want false")
	}
}

func TestGetContext_MissingUserID(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetContext("")
	var ve *memory.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestGetContext_ReturningUserWindow(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.GetContext("alice"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 7; i++ {
		if _, err := svc.SaveConversation(memory.SaveConversationParams{
			UserID: "alice", UserMessage: "m", OraResponse: "r",
		}); err != nil {
			t.Fatal(err)
		}
	}

	res, err := svc.GetContext("alice")
	if err != nil {
		t.Fatal(err)
	}
	if res.RecentConversationsCount != 5 {
		t.Errorf("RecentConversationsCount = %d, want window of 5", res.RecentConversationsCount)
	}
	if res.TotalConversations != 7 {
		t.Errorf("TotalConversations = %d, want 7", res.TotalConversations)
	}
}

func TestGetContext_UpdatesLastVisit(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.GetContext("alice"); err != nil {
		t.Fatal(err)
	}
	stats1, err := svc.UserStats("alice")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetContext("alice"); err != nil {
		t.Fatal(err)
	}
	stats2, err := svc.UserStats("alice")
	if err != nil {
		t.Fatal(err)
	}

	if stats2.LastVisit < stats1.LastVisit {
		t.Errorf("last_visit went backwards: %q -> %q", stats1.LastVisit, stats2.LastVisit)
	}
	if stats2.FirstVisit != stats1.FirstVisit {
		t.Errorf("first_visit changed: %q -> %q", stats1.FirstVisit, stats2.FirstVisit)
	}
}

// ─── SaveConversation ───────────────────────────────────────────────────────

func TestSaveConversation_AppendOnlyCounts(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.GetContext("alice"); err != nil {
		t.Fatal(err)
	}
	const n = 5
	for i := 0; i < n; i++ {
		if _, err := svc.SaveConversation(memory.SaveConversationParams{
			UserID: "alice", UserMessage: "m", OraResponse: "r",
		}); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := svc.UserStats("alice")
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalConversations != n {
		t.Errorf("derived count = %d, want %d", stats.TotalConversations, n)
	}

	res, err := svc.GetContext("alice")
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalConversations != n {
		t.Errorf("stored counter = %d, want %d", res.TotalConversations, n)
	}
}

func TestSaveConversation_Validation(t *testing.T) {
	svc := newTestService(t)

	cases := []memory.SaveConversationParams{
		{UserMessage: "m", OraResponse: "r"},
		{UserID: "u", OraResponse: "r"},
		{UserID: "u", UserMessage: "m"},
		{},
	}
	for i, p := range cases {
		_, err := svc.SaveConversation(p)
		var ve *memory.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("case %d: err = %v, want ValidationError", i, err)
		}
	}
}

func TestSaveConversation_ConcurrentSameUser(t *testing.T) {
	for name, svc := range map[string]*memory.Service{
		"file":   newFileService(t),
		"sqlite": newTestService(t),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.GetContext("alice"); err != nil {
				t.Fatal(err)
			}

			const workers = 8
			const perWorker = 5
			ids := make(chan int64, workers*perWorker)
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						rec, err := svc.SaveConversation(memory.SaveConversationParams{
							UserID: "alice", UserMessage: "m", OraResponse: "r",
						})
						if err != nil {
							t.Errorf("concurrent save: %v", err)
							return
						}
						ids <- rec.ID
					}
				}()
			}
			wg.Wait()
			close(ids)

			seen := map[int64]bool{}
			n := 0
			for id := range ids {
				if seen[id] {
					t.Errorf("duplicate conversation id %d", id)
				}
				seen[id] = true
				n++
			}

			res, err := svc.GetContext("alice")
			if err != nil {
				t.Fatal(err)
			}
			if res.TotalConversations < n {
				t.Errorf("counter = %d, smaller than %d successful saves", res.TotalConversations, n)
			}
		})
	}
}

// ─── UpdateProfile ──────────────────────────────────────────────────────────

func TestUpdateProfile_ReportsAppliedFields(t *testing.T) {
	svc := newTestService(t)

	_, fields, err := svc.UpdateProfile("alice", memory.ProfilePatch{
		Name:               memory.Field[string]{Set: true, Value: "Alice"},
		OnboardingComplete: memory.Field[bool]{Set: true, Value: true},
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	want := []string{"name", "onboarding_complete"}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %q, want %q", i, fields[i], want[i])
		}
	}
}

func TestUpdateProfile_EmptyPatchRejected(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.UpdateProfile("alice", memory.ProfilePatch{})
	var ve *memory.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

// ─── Search ─────────────────────────────────────────────────────────────────

func TestSearchConversations_LimitOne(t *testing.T) {
	svc := newTestService(t)

	var lastID int64
	for i := 0; i < 5; i++ {
		rec, err := svc.SaveConversation(memory.SaveConversationParams{
			UserID: "alice", UserMessage: "m", OraResponse: "r",
		})
		if err != nil {
			t.Fatal(err)
		}
		lastID = rec.ID
	}

	res, err := svc.SearchConversations("alice", 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 || len(res.Results) != 1 {
		t.Fatalf("count = %d, want exactly 1", res.Count)
	}
	if res.Results[0].ID != lastID {
		t.Errorf("result id = %d, want most recent %d", res.Results[0].ID, lastID)
	}
}

func TestSearchConversations_DefaultLimit(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.SearchConversations("alice", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Results == nil {
		t.Error("Results must be an empty slice, not nil")
	}
	if res.Count != 0 {
		t.Errorf("count = %d, want 0", res.Count)
	}
}

// ─── Stats ──────────────────────────────────────────────────────────────────

func TestUserStats_UnknownUserNoSideEffects(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UserStats("ghost")
	var nf *memory.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}

	// the failed lookup must not have created a profile
	overview, err := svc.AllUsers()
	if err != nil {
		t.Fatal(err)
	}
	if overview.Stats.TotalUsers != 0 {
		t.Errorf("TotalUsers = %d after failed stats lookup, want 0", overview.Stats.TotalUsers)
	}
}

func TestAllUsers_SortAndCounts(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.GetContext("old"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetContext("recent"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SaveConversation(memory.SaveConversationParams{
		UserID: "recent", UserMessage: "m", OraResponse: "r",
	}); err != nil {
		t.Fatal(err)
	}

	overview, err := svc.AllUsers()
	if err != nil {
		t.Fatal(err)
	}
	if overview.Stats.TotalUsers != 2 {
		t.Errorf("TotalUsers = %d, want 2", overview.Stats.TotalUsers)
	}
	if overview.Stats.TotalConversations != 1 {
		t.Errorf("TotalConversations = %d, want 1", overview.Stats.TotalConversations)
	}
	if overview.Stats.ActiveToday != 2 {
		t.Errorf("ActiveToday = %d, want 2 (both visited today)", overview.Stats.ActiveToday)
	}

	if overview.Users[0].UserID != "recent" {
		t.Errorf("first user = %q, want most recently visited", overview.Users[0].UserID)
	}
	for _, u := range overview.Users {
		want := 0
		if u.UserID == "recent" {
			want = 1
		}
		if u.ActualConversations != want {
			t.Errorf("user %s: ActualConversations = %d, want %d", u.UserID, u.ActualConversations, want)
		}
	}
}
