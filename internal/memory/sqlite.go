package memory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// dbFileName is the SQLite database file under the data directory.
const dbFileName = "ora_memory.db"

// SQLiteStore is the relational backend. Mutations that touch more than
// one row (conversation append + counter increment) run in a transaction;
// the driver serializes writers, so the single-writer semantics hold
// without an application-level lock.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database under dataDir, applies pragmas and
// runs migrations. Unlike the file backend, a broken database always
// fails the caller rather than resetting.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, storageFault("create data dir", err)
	}

	db, err := openDB("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, storageFault("open database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, storageFault("pragma", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, storageFault("migration", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	// conversations.user_id deliberately carries no FOREIGN KEY clause:
	// orphaned records are tolerated on read paths, and appends must
	// succeed even when the profile row does not exist yet.
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			user_id             TEXT PRIMARY KEY,
			name                TEXT,
			personality_type    TEXT,
			communication_style TEXT,
			first_visit         TEXT    NOT NULL,
			last_visit          TEXT    NOT NULL,
			onboarding_complete INTEGER NOT NULL DEFAULT 0,
			total_conversations INTEGER NOT NULL DEFAULT 0,
			preferences         TEXT
		);

		CREATE TABLE IF NOT EXISTS conversations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id      TEXT NOT NULL,
			timestamp    TEXT NOT NULL,
			user_message TEXT NOT NULL,
			ora_response TEXT NOT NULL,
			emotion      TEXT NOT NULL DEFAULT '',
			topic        TEXT NOT NULL DEFAULT '',
			session_id   TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_conv_user      ON conversations(user_id);
		CREATE INDEX IF NOT EXISTS idx_conv_timestamp ON conversations(user_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_users_visit    ON users(last_visit DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Profiles ────────────────────────────────────────────────────────────────

const profileColumns = `user_id, name, personality_type, communication_style,
	first_visit, last_visit, onboarding_complete, total_conversations, preferences`

func (s *SQLiteStore) GetProfile(userID string) (*UserProfile, error) {
	row := s.db.QueryRow(`SELECT `+profileColumns+` FROM users WHERE user_id = ?`, userID)
	u, err := scanProfile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{UserID: userID}
	}
	if err != nil {
		return nil, storageFault("get profile", err)
	}
	return u, nil
}

func (s *SQLiteStore) EnsureProfile(userID, now string) (*UserProfile, bool, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO users (user_id, first_visit, last_visit) VALUES (?, ?, ?)`,
		userID, now, now,
	)
	if err != nil {
		return nil, false, storageFault("ensure profile", err)
	}
	n, _ := res.RowsAffected()

	u, err := s.GetProfile(userID)
	if err != nil {
		return nil, false, err
	}
	return u, n > 0, nil
}

func (s *SQLiteStore) UpdateProfile(userID string, patch ProfilePatch, now string) (*UserProfile, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, storageFault("update profile: begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO users (user_id, first_visit, last_visit) VALUES (?, ?, ?)`,
		userID, now, now,
	); err != nil {
		return nil, storageFault("update profile: ensure", err)
	}

	row := tx.QueryRow(`SELECT `+profileColumns+` FROM users WHERE user_id = ?`, userID)
	u, err := scanProfile(row.Scan)
	if err != nil {
		return nil, storageFault("update profile: read", err)
	}

	patch.apply(u)
	u.LastVisit = now

	if _, err := tx.Exec(
		`UPDATE users
		 SET name = ?, personality_type = ?, communication_style = ?,
		     onboarding_complete = ?, preferences = ?, last_visit = ?
		 WHERE user_id = ?`,
		u.Name, u.PersonalityType, u.CommunicationStyle,
		u.OnboardingComplete, prefsValue(u.Preferences), u.LastVisit, userID,
	); err != nil {
		return nil, storageFault("update profile: write", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageFault("update profile: commit", err)
	}
	return u, nil
}

func (s *SQLiteStore) TouchLastVisit(userID, now string) error {
	_, err := s.db.Exec(`UPDATE users SET last_visit = ? WHERE user_id = ?`, now, userID)
	return storageFault("touch last visit", err)
}

func (s *SQLiteStore) AllProfiles() ([]UserProfile, error) {
	rows, err := s.db.Query(`SELECT ` + profileColumns + ` FROM users`)
	if err != nil {
		return nil, storageFault("list profiles", err)
	}
	defer func() { _ = rows.Close() }()

	var out []UserProfile
	for rows.Next() {
		u, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, storageFault("scan profile", err)
		}
		out = append(out, *u)
	}
	return out, storageFault("list profiles", rows.Err())
}

// ─── Conversations ───────────────────────────────────────────────────────────

func (s *SQLiteStore) InsertConversation(p SaveConversationParams, now string) (*ConversationRecord, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, storageFault("insert conversation: begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO conversations (user_id, timestamp, user_message, ora_response, emotion, topic, session_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, now, p.UserMessage, p.OraResponse, p.Emotion, p.Topic, p.SessionID,
	)
	if err != nil {
		return nil, storageFault("insert conversation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storageFault("insert conversation: id", err)
	}

	// No-op when the profile row does not exist; the record is kept.
	if _, err := tx.Exec(
		`UPDATE users SET total_conversations = total_conversations + 1, last_visit = ? WHERE user_id = ?`,
		now, p.UserID,
	); err != nil {
		return nil, storageFault("insert conversation: counter", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageFault("insert conversation: commit", err)
	}

	return &ConversationRecord{
		ID:          id,
		UserID:      p.UserID,
		Timestamp:   now,
		UserMessage: p.UserMessage,
		OraResponse: p.OraResponse,
		Emotion:     p.Emotion,
		Topic:       p.Topic,
		SessionID:   p.SessionID,
	}, nil
}

func (s *SQLiteStore) ListConversations(userID string, limit int) ([]ConversationRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, timestamp, user_message, ora_response, emotion, topic, session_id
		 FROM conversations
		 WHERE user_id = ?
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, storageFault("list conversations", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ConversationRecord
	for rows.Next() {
		var c ConversationRecord
		if err := rows.Scan(&c.ID, &c.UserID, &c.Timestamp, &c.UserMessage, &c.OraResponse,
			&c.Emotion, &c.Topic, &c.SessionID); err != nil {
			return nil, storageFault("scan conversation", err)
		}
		out = append(out, c)
	}
	return out, storageFault("list conversations", rows.Err())
}

func (s *SQLiteStore) CountConversations(userID string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM conversations WHERE user_id = ?`, userID,
	).Scan(&n)
	return n, storageFault("count conversations", err)
}

func (s *SQLiteStore) CountConversationsSince(userID, since string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM conversations WHERE user_id = ? AND timestamp > ?`, userID, since,
	).Scan(&n)
	return n, storageFault("count conversations since", err)
}

func (s *SQLiteStore) ConversationCounts() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT user_id, COUNT(*) FROM conversations GROUP BY user_id`)
	if err != nil {
		return nil, storageFault("conversation counts", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, storageFault("scan count", err)
		}
		counts[id] = n
	}
	return counts, storageFault("conversation counts", rows.Err())
}

func (s *SQLiteStore) TotalConversations() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&n)
	return n, storageFault("total conversations", err)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func scanProfile(scan func(dest ...any) error) (*UserProfile, error) {
	var u UserProfile
	var prefs sql.NullString
	if err := scan(
		&u.UserID, &u.Name, &u.PersonalityType, &u.CommunicationStyle,
		&u.FirstVisit, &u.LastVisit, &u.OnboardingComplete, &u.TotalConversations, &prefs,
	); err != nil {
		return nil, err
	}
	if prefs.Valid {
		u.Preferences = json.RawMessage(prefs.String)
	}
	return &u, nil
}

// prefsValue converts the opaque preferences blob to a nullable column value.
func prefsValue(raw json.RawMessage) *string {
	if raw == nil {
		return nil
	}
	v := string(raw)
	return &v
}

var _ Store = (*SQLiteStore)(nil)
