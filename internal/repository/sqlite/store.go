package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/wecube/server/internal/repository"
)

// DefaultDBFileName is the database filename under the data directory.
const DefaultDBFileName = "wecube.db"

var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS users (
  id               TEXT PRIMARY KEY,
  email            TEXT NOT NULL UNIQUE COLLATE NOCASE,
  username         TEXT NOT NULL UNIQUE,
  password_hash    TEXT NOT NULL,
  photo_url        TEXT,
  push_token       TEXT,
  profile_complete INTEGER NOT NULL DEFAULT 0,
  created_at       INTEGER NOT NULL,
  updated_at       INTEGER NOT NULL
);
`,
	`
CREATE TABLE IF NOT EXISTS user_blocks (
  blocker_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  blocked_id TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  PRIMARY KEY (blocker_id, blocked_id)
);
`,
	`
CREATE TABLE IF NOT EXISTS conversations (
  id                TEXT PRIMARY KEY,
  participant_a     TEXT NOT NULL,
  participant_b     TEXT NOT NULL,
  created_at        INTEGER NOT NULL,
  pending_reader_id TEXT,
  last_message_id   TEXT,
  last_message      TEXT,
  last_sender_id    TEXT,
  last_message_at   INTEGER,
  last_is_read      INTEGER
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_conversations_participant_a ON conversations (participant_a);
`,
	`
CREATE INDEX IF NOT EXISTS idx_conversations_participant_b ON conversations (participant_b);
`,
	`
CREATE TABLE IF NOT EXISTS messages (
  seq             INTEGER PRIMARY KEY AUTOINCREMENT,
  id              TEXT NOT NULL UNIQUE,
  conversation_id TEXT NOT NULL REFERENCES conversations(id),
  sender_id       TEXT NOT NULL,
  recipient_id    TEXT NOT NULL,
  message         TEXT NOT NULL,
  created_at      INTEGER NOT NULL,
  is_read         INTEGER NOT NULL DEFAULT 0
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_messages_conversation_time ON messages (conversation_id, created_at, seq);
`,
	`
CREATE INDEX IF NOT EXISTS idx_messages_recipient_unread ON messages (recipient_id, is_read);
`,
	`
CREATE TABLE IF NOT EXISTS listings (
  id             TEXT PRIMARY KEY,
  competition_id TEXT NOT NULL,
  user_id        TEXT NOT NULL,
  name           TEXT NOT NULL,
  puzzle_type    TEXT NOT NULL,
  price          REAL NOT NULL,
  usage          TEXT NOT NULL,
  description    TEXT NOT NULL DEFAULT '',
  image_url      TEXT NOT NULL DEFAULT '',
  created_at     INTEGER NOT NULL
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_listings_competition ON listings (competition_id, created_at DESC);
`,
	`
CREATE TABLE IF NOT EXISTS reports (
  id          TEXT PRIMARY KEY,
  listing_id  TEXT NOT NULL,
  reported_by TEXT NOT NULL,
  reason      TEXT NOT NULL,
  type        TEXT NOT NULL,
  created_at  INTEGER NOT NULL
);
`,
}

// Store is the embedded single-node backend over one SQLite file.
type Store struct {
	db *sql.DB

	users         *UserRepo
	blocks        *BlockRepo
	conversations *ConversationRepo
	messages      *MessageRepo
	listings      *ListingRepo

	closeOnce sync.Once
}

// Open opens (or creates) the database under dataDir and runs migrations.
func Open(dataDir string) (*Store, string, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, "", errors.Wrap(err, "create storage directory")
	}

	dbPath := filepath.Join(dataDir, DefaultDBFileName)
	store, err := OpenPath(dbPath)
	if err != nil {
		return nil, "", err
	}
	return store, dbPath, nil
}

// OpenPath opens SQLite at an explicit path and runs schema migrations.
// Transactions take the write lock up front so that read-then-write units of
// work never fail on a stale snapshot.
func OpenPath(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", filepath.ToSlash(dbPath))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite database")
	}

	if err := enableWALMode(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:            db,
		users:         &UserRepo{db: db},
		blocks:        &BlockRepo{db: db},
		conversations: &ConversationRepo{db: db},
		messages:      &MessageRepo{db: db},
		listings:      &ListingRepo{db: db},
	}, nil
}

func (s *Store) Users() repository.UserRepository                 { return s.users }
func (s *Store) Blocks() repository.BlockRepository               { return s.blocks }
func (s *Store) Conversations() repository.ConversationRepository { return s.conversations }
func (s *Store) Messages() repository.MessageRepository           { return s.messages }
func (s *Store) Listings() repository.ListingRepository           { return s.listings }

// Close closes the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	var closeErr error
	s.closeOnce.Do(func() {
		closeErr = s.db.Close()
	})
	return closeErr
}

func applyMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return errors.Wrap(err, "read schema version")
	}

	if version >= len(migrations) {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin migration transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := version; i < len(migrations); i++ {
		if _, err := tx.Exec(migrations[i]); err != nil {
			return errors.Wrapf(err, "apply migration %d", i+1)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", i+1)); err != nil {
			return errors.Wrapf(err, "set schema version %d", i+1)
		}
	}

	return errors.Wrap(tx.Commit(), "commit migration transaction")
}

func enableWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL;").Scan(&journalMode); err != nil {
		return errors.Wrap(err, "enable WAL mode")
	}
	if !strings.EqualFold(journalMode, "wal") {
		return errors.Errorf("enable WAL mode: unexpected journal mode %q", journalMode)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
