package memory_test

import (
	"strings"
	"testing"

	"github.com/oralabs/ora-memory/internal/memory"
)

func TestBuildContext_ProfileLines(t *testing.T) {
	u := &memory.UserProfile{
		UserID:             "u1",
		Name:               str("Alex"),
		TotalConversations: 3,
	}
	recent := []memory.ConversationRecord{
		{UserMessage: "how was my week?", OraResponse: "busy but good", Timestamp: "2026-01-02T11:00:00.000000"},
		{UserMessage: "hello again", OraResponse: "welcome back", Timestamp: "2026-01-02T10:00:00.000000"},
	}

	got := memory.BuildContext(u, recent)

	if !strings.Contains(got, "User's name: Alex") {
		t.Errorf("missing name line:\n%s", got)
	}
	if !strings.Contains(got, "Total conversations: 3") {
		t.Errorf("missing total line:\n%s", got)
	}
	if strings.Contains(got, "Personality:") {
		t.Errorf("personality line present for null personality:\n%s", got)
	}

	// The two exchanges read in chronological order, oldest first.
	lines := strings.Split(got, "\n")
	want := []string{
		"User's name: Alex",
		"Total conversations: 3",
		"Recent conversation history:",
		"User: hello again",
		"ORA: welcome back",
		"User: how was my week?",
		"ORA: busy but good",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestBuildContext_QuotesThreeMostRecent(t *testing.T) {
	u := &memory.UserProfile{UserID: "u1"}
	// Newest-first window of five; only the newest three get quoted.
	recent := []memory.ConversationRecord{
		{UserMessage: "m5", OraResponse: "r5"},
		{UserMessage: "m4", OraResponse: "r4"},
		{UserMessage: "m3", OraResponse: "r3"},
		{UserMessage: "m2", OraResponse: "r2"},
		{UserMessage: "m1", OraResponse: "r1"},
	}

	got := memory.BuildContext(u, recent)

	for _, absent := range []string{"m1", "m2"} {
		if strings.Contains(got, "User: "+absent) {
			t.Errorf("quoted %s, which is outside the three most recent:\n%s", absent, got)
		}
	}
	i3 := strings.Index(got, "User: m3")
	i4 := strings.Index(got, "User: m4")
	i5 := strings.Index(got, "User: m5")
	if i3 < 0 || i4 < 0 || i5 < 0 {
		t.Fatalf("missing quoted exchanges:\n%s", got)
	}
	if !(i3 < i4 && i4 < i5) {
		t.Errorf("exchanges not in chronological order:\n%s", got)
	}
}

func TestBuildContext_AllFieldsSet(t *testing.T) {
	u := &memory.UserProfile{
		UserID:             "u1",
		Name:               str("Alex"),
		PersonalityType:    str("INFP"),
		CommunicationStyle: str("gentle"),
		TotalConversations: 7,
	}

	got := memory.BuildContext(u, nil)
	want := "User's name: Alex\nPersonality: INFP\nCommunication style: gentle\nTotal conversations: 7"
	if got != want {
		t.Errorf("context = %q, want %q", got, want)
	}
}

func TestBuildContext_FallbackWhenEmpty(t *testing.T) {
	got := memory.BuildContext(&memory.UserProfile{UserID: "u1"}, nil)
	if got != "Returning user with no previous context" {
		t.Errorf("context = %q, want fallback line", got)
	}
}
