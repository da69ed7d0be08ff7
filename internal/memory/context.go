package memory

import (
	"fmt"
	"strings"
)

// contextWindow is how many recent records are fetched for assembly.
const contextWindow = 5

// quotedExchanges is how many of those are quoted verbatim in the text.
const quotedExchanges = 3

// Fixed strings surfaced to the assistant. These are part of the API
// contract and must not drift.
const (
	newUserContext    = "New user - start onboarding"
	newUserGreeting   = "Hi! I'm ORA, your wellness companion. What's your name?"
	noHistoryContext  = "Returning user with no previous context"
	historyHeaderLine = "Recent conversation history:"
)

// BuildContext renders the context summary for a returning user from the
// profile and its recent conversation window (newest first). Pure: no
// store access, no clock.
func BuildContext(u *UserProfile, recent []ConversationRecord) string {
	var lines []string

	if u.Name != nil {
		lines = append(lines, fmt.Sprintf("User's name: %s", *u.Name))
	}
	if u.PersonalityType != nil {
		lines = append(lines, fmt.Sprintf("Personality: %s", *u.PersonalityType))
	}
	if u.CommunicationStyle != nil {
		lines = append(lines, fmt.Sprintf("Communication style: %s", *u.CommunicationStyle))
	}
	if u.TotalConversations > 0 {
		lines = append(lines, fmt.Sprintf("Total conversations: %d", u.TotalConversations))
	}

	if len(recent) > 0 {
		lines = append(lines, historyHeaderLine)
		quoted := recent
		if len(quoted) > quotedExchanges {
			quoted = quoted[:quotedExchanges]
		}
		// The window arrives newest-first; the quoted exchanges read
		// chronologically, oldest of the three first.
		for i := len(quoted) - 1; i >= 0; i-- {
			lines = append(lines, "User: "+quoted[i].UserMessage)
			lines = append(lines, "ORA: "+quoted[i].OraResponse)
		}
	}

	if len(lines) == 0 {
		return noHistoryContext
	}
	return strings.Join(lines, "\n")
}
