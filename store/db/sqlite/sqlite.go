// Package sqlite implements the store driver on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/campushq/advisor/internal/profile"
	"github.com/campushq/advisor/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a database specified by its database driver name and a
// driver-specific data source name.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the FAQ bank schema when missing.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS faq (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			suggested_questions TEXT NOT NULL DEFAULT '[]',
			created_ts BIGINT NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to create faq table")
	}
	return nil
}

func (d *DB) CreateFAQ(ctx context.Context, create *store.FAQ) (*store.FAQ, error) {
	suggestions, err := json.Marshal(create.SuggestedQuestions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal suggested questions")
	}

	stmt := `
		INSERT INTO faq (question, answer, suggested_questions, created_ts)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.Question, create.Answer, string(suggestions), create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, err
	}
	return create, nil
}

func (d *DB) ListFAQs(ctx context.Context, find *store.FindFAQ) ([]*store.FAQ, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}

	query := "SELECT id, question, answer, suggested_questions, created_ts FROM faq WHERE " +
		joinAnd(where) + " ORDER BY id"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	faqs := []*store.FAQ{}
	for rows.Next() {
		var faq store.FAQ
		var suggestions string
		if err := rows.Scan(&faq.ID, &faq.Question, &faq.Answer, &suggestions, &faq.CreatedTs); err != nil {
			return nil, err
		}
		// Malformed suggestions degrade to none rather than failing the read.
		_ = json.Unmarshal([]byte(suggestions), &faq.SuggestedQuestions)
		faqs = append(faqs, &faq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return faqs, nil
}

func (d *DB) DeleteFAQ(ctx context.Context, delete *store.DeleteFAQ) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM faq WHERE id = ?", delete.ID)
	return err
}

func joinAnd(conds []string) string {
	result := conds[0]
	for _, c := range conds[1:] {
		result += " AND " + c
	}
	return result
}
