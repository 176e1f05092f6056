package transcript

import (
	"database/sql"
	"time"
)

const defaultMaxTurns = 200

// Turn is one persisted history entry.
type Turn struct {
	Speaker   string
	Text      string
	CreatedAt time.Time
}

// Store is a durable, per-user log of committed turns. It is strictly
// write-behind: the in-memory session is the source of truth and a
// failed write never blocks or corrupts it.
type Store struct {
	db       *sql.DB
	maxTurns int
}

const schema = `
CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    speaker TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_turns_user ON turns(user_id, id DESC);
`

// NewStore creates a transcript log on the provided database connection.
func NewStore(db *sql.DB, maxTurns int) (*Store, error) {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	s := &Store{db: db, maxTurns: maxTurns}
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends a turn and trims the user's log to the retention cap,
// oldest first.
func (s *Store) Add(userID, speaker, text string) error {
	_, err := s.db.Exec(
		`INSERT INTO turns (user_id, speaker, text) VALUES (?, ?, ?)`,
		userID, speaker, text,
	)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		DELETE FROM turns
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM turns
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?
		)`, userID, userID, s.maxTurns)

	return err
}

// Recent returns up to n of the user's most recent turns, oldest first.
func (s *Store) Recent(userID string, n int) ([]Turn, error) {
	rows, err := s.db.Query(`
		SELECT speaker, text, created_at FROM (
			SELECT id, speaker, text, created_at
			FROM turns
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var createdAt string
		if err := rows.Scan(&t.Speaker, &t.Text, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		turns = append(turns, t)
	}

	return turns, rows.Err()
}

// Clear drops a user's transcript.
func (s *Store) Clear(userID string) error {
	_, err := s.db.Exec(`DELETE FROM turns WHERE user_id = ?`, userID)
	return err
}
