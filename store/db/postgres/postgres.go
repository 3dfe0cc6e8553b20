// Package postgres implements the store driver on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/campushq/advisor/internal/profile"
	"github.com/campushq/advisor/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a connection to the PostgreSQL instance pointed to by the DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{db: postgresDB, profile: profile}, nil
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
			id SERIAL PRIMARY KEY,
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
		VALUES ($1, $2, $3, $4)
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
	query := "SELECT id, question, answer, suggested_questions, created_ts FROM faq"
	args := []any{}
	if find.ID != nil {
		query += " WHERE id = $1"
		args = append(args, *find.ID)
	}
	query += " ORDER BY id"

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
		_ = json.Unmarshal([]byte(suggestions), &faq.SuggestedQuestions)
		faqs = append(faqs, &faq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return faqs, nil
}

func (d *DB) DeleteFAQ(ctx context.Context, delete *store.DeleteFAQ) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM faq WHERE id = $1", delete.ID)
	return err
}
