package memory

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// dataFileName is the single JSON document holding the full store state.
const dataFileName = "ora_memory.json"

// FileStore is the flat-file backend: the whole state lives in one JSON
// document {users: {...}, conversations: [...]} that is rewritten
// atomically on every mutation. A single mutex serializes writers, which
// is what makes counter increments and id assignment safe.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	state  fileState
	nextID int64
}

type fileState struct {
	Users         map[string]*UserProfile `json:"users"`
	Conversations []ConversationRecord    `json:"conversations"`
}

func emptyState() fileState {
	return fileState{Users: map[string]*UserProfile{}, Conversations: []ConversationRecord{}}
}

// NewFileStore opens (or initializes) the JSON data file under dataDir.
//
// A missing file is created with the empty initial structure. An
// unreadable or corrupt file either resets to the empty structure with a
// logged warning (strict=false, the default) or fails with a
// StorageFault (strict=true). Corruption never crashes the process.
func NewFileStore(dataDir string, strict bool) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, storageFault("create data dir", err)
	}

	s := &FileStore{path: filepath.Join(dataDir, dataFileName), state: emptyState()}

	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := s.save(); err != nil {
			return nil, err
		}
		log.Printf("memory: data file initialized: %s", s.path)
	case err != nil:
		if strict {
			return nil, storageFault("read data file", err)
		}
		log.Printf("WARNING: memory: data file unreadable, resetting: %v", err)
	default:
		if err := json.Unmarshal(raw, &s.state); err != nil {
			if strict {
				return nil, storageFault("parse data file", err)
			}
			log.Printf("WARNING: memory: data file corrupt, resetting: %v", err)
			s.state = emptyState()
		}
	}

	if s.state.Users == nil {
		s.state.Users = map[string]*UserProfile{}
	}
	for _, c := range s.state.Conversations {
		if c.ID > s.nextID {
			s.nextID = c.ID
		}
	}

	return s, nil
}

// Close is a no-op for the file backend; every mutation is already durable.
func (s *FileStore) Close() error { return nil }

// save rewrites the data file via a temp file and rename, so readers of
// the file itself never observe a partial write.
func (s *FileStore) save() error {
	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return storageFault("encode data file", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return storageFault("write data file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return storageFault("replace data file", err)
	}
	return nil
}

// ─── Profiles ────────────────────────────────────────────────────────────────

func (s *FileStore) GetProfile(userID string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.state.Users[userID]
	if !ok {
		return nil, &NotFoundError{UserID: userID}
	}
	return cloneProfile(u), nil
}

func (s *FileStore) EnsureProfile(userID, now string) (*UserProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.state.Users[userID]; ok {
		return cloneProfile(u), false, nil
	}

	u := newProfile(userID, now)
	s.state.Users[userID] = u
	if err := s.save(); err != nil {
		delete(s.state.Users, userID)
		return nil, false, err
	}
	return cloneProfile(u), true, nil
}

func (s *FileStore) UpdateProfile(userID string, patch ProfilePatch, now string) (*UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.Users[userID]
	if !ok {
		u = newProfile(userID, now)
		s.state.Users[userID] = u
	}

	prev := *u
	patch.apply(u)
	u.LastVisit = now
	if err := s.save(); err != nil {
		*u = prev
		return nil, err
	}
	return cloneProfile(u), nil
}

func (s *FileStore) TouchLastVisit(userID, now string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.state.Users[userID]
	if !ok {
		return nil
	}
	prev := u.LastVisit
	u.LastVisit = now
	if err := s.save(); err != nil {
		u.LastVisit = prev
		return err
	}
	return nil
}

func (s *FileStore) AllProfiles() ([]UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]UserProfile, 0, len(s.state.Users))
	for _, u := range s.state.Users {
		out = append(out, *cloneProfile(u))
	}
	return out, nil
}

// ─── Conversations ───────────────────────────────────────────────────────────

func (s *FileStore) InsertConversation(p SaveConversationParams, now string) (*ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := ConversationRecord{
		ID:          s.nextID + 1,
		UserID:      p.UserID,
		Timestamp:   now,
		UserMessage: p.UserMessage,
		OraResponse: p.OraResponse,
		Emotion:     p.Emotion,
		Topic:       p.Topic,
		SessionID:   p.SessionID,
	}
	s.state.Conversations = append(s.state.Conversations, rec)

	// Counter increment and the appended record commit together or not
	// at all; a failed save rolls both back.
	var prev UserProfile
	u, hasProfile := s.state.Users[p.UserID]
	if hasProfile {
		prev = *u
		u.TotalConversations++
		u.LastVisit = now
	}

	if err := s.save(); err != nil {
		s.state.Conversations = s.state.Conversations[:len(s.state.Conversations)-1]
		if hasProfile {
			*u = prev
		}
		return nil, err
	}

	s.nextID = rec.ID
	return &rec, nil
}

func (s *FileStore) ListConversations(userID string, limit int) ([]ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ConversationRecord
	for _, c := range s.state.Conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	// Timestamp descending; id breaks ties so order is deterministic.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FileStore) CountConversations(userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.state.Conversations {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *FileStore) CountConversationsSince(userID, since string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.state.Conversations {
		if c.UserID == userID && c.Timestamp > since {
			n++
		}
	}
	return n, nil
}

func (s *FileStore) ConversationCounts() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range s.state.Conversations {
		counts[c.UserID]++
	}
	return counts, nil
}

func (s *FileStore) TotalConversations() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Conversations), nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func cloneProfile(u *UserProfile) *UserProfile {
	c := *u
	c.Name = cloneString(u.Name)
	c.PersonalityType = cloneString(u.PersonalityType)
	c.CommunicationStyle = cloneString(u.CommunicationStyle)
	if u.Preferences != nil {
		c.Preferences = append(json.RawMessage(nil), u.Preferences...)
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

var _ Store = (*FileStore)(nil)
