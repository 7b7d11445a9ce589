package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Adithya-Monish-Kumar-K/clausecop/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id            BIGSERIAL PRIMARY KEY,
    filename      TEXT NOT NULL,
    file_path     TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'processing',
    error_message TEXT,
    page_count    INT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS clauses (
    id             BIGSERIAL PRIMARY KEY,
    document_id    BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    clause_index   INT NOT NULL,
    section_number TEXT,
    title          TEXT,
    category       TEXT NOT NULL DEFAULT 'Other',
    confidence     DOUBLE PRECISION,
    page_start     INT NOT NULL,
    page_end       INT NOT NULL,
    text           TEXT NOT NULL,
    UNIQUE (document_id, clause_index)
);

CREATE INDEX IF NOT EXISTS idx_clauses_document ON clauses (document_id);
`

// Store reads and writes documents and clauses in PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "document-store"),
	}
}

// Migrate creates the documents and clauses tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// CreateDocument inserts a new document in the processing state.
func (s *Store) CreateDocument(ctx context.Context, filename, filePath string, pageCount *int) (*Document, error) {
	doc := &Document{
		Filename:  filename,
		FilePath:  filePath,
		Status:    StatusProcessing,
		PageCount: pageCount,
	}
	err := s.db.DB.QueryRowContext(ctx,
		`INSERT INTO documents (filename, file_path, status, page_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		filename, filePath, string(StatusProcessing), nullableInt(pageCount),
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	return doc, nil
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	var (
		doc       Document
		status    string
		errMsg    sql.NullString
		pageCount sql.NullInt64
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, filename, file_path, status, error_message, page_count, created_at, updated_at
		FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.Filename, &doc.FilePath, &status, &errMsg, &pageCount, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %d: %w", id, err)
	}
	doc.Status = Status(status)
	if errMsg.Valid {
		doc.ErrorMessage = &errMsg.String
	}
	if pageCount.Valid {
		n := int(pageCount.Int64)
		doc.PageCount = &n
	}
	return &doc, nil
}

// ListDocuments returns the most recent documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]Document, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, filename, file_path, status, error_message, page_count, created_at, updated_at
		FROM documents ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc       Document
			status    string
			errMsg    sql.NullString
			pageCount sql.NullInt64
		)
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.FilePath, &status, &errMsg, &pageCount, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		doc.Status = Status(status)
		if errMsg.Valid {
			doc.ErrorMessage = &errMsg.String
		}
		if pageCount.Valid {
			n := int(pageCount.Int64)
			doc.PageCount = &n
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// MarkProcessing moves a document back to processing and clears any earlier
// failure message.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	res, err := s.db.DB.ExecContext(ctx,
		`UPDATE documents SET status = $1, error_message = NULL, updated_at = NOW() WHERE id = $2`,
		string(StatusProcessing), id)
	if err != nil {
		return fmt.Errorf("marking document %d processing: %w", id, err)
	}
	return requireRow(res, id)
}

// CompleteProcessing replaces the document's clause set and marks it ready.
// Old clauses are never visible alongside new ones.
func (s *Store) CompleteProcessing(ctx context.Context, id int64, clauses []Clause) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM clauses WHERE document_id = $1`, id); err != nil {
			return fmt.Errorf("deleting clauses: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO clauses (document_id, clause_index, section_number, title, category, confidence, page_start, page_end, text)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
		if err != nil {
			return fmt.Errorf("preparing clause insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range clauses {
			category := c.Category
			if category == "" {
				category = DefaultCategory
			}
			if _, err := stmt.ExecContext(ctx,
				id, c.ClauseIndex, nullableString(c.SectionNumber), nullableString(c.Title),
				category, nullableFloat(c.Confidence), c.PageStart, c.PageEnd, c.Text,
			); err != nil {
				return fmt.Errorf("inserting clause %d: %w", c.ClauseIndex, err)
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE documents SET status = $1, error_message = NULL, updated_at = NOW() WHERE id = $2`,
			string(StatusReady), id)
		if err != nil {
			return fmt.Errorf("updating status: %w", err)
		}
		return requireRow(res, id)
	})
	if err != nil {
		return fmt.Errorf("completing document %d: %w", id, err)
	}
	s.logger.Debug("clauses replaced", "document_id", id, "count", len(clauses))
	return nil
}

// FailProcessing removes any clauses and records the failure message,
// truncated to MaxErrorMessage characters.
func (s *Store) FailProcessing(ctx context.Context, id int64, message string) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM clauses WHERE document_id = $1`, id); err != nil {
			return fmt.Errorf("deleting clauses: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE documents SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`,
			string(StatusFailed), TruncateMessage(message), id)
		if err != nil {
			return fmt.Errorf("updating status: %w", err)
		}
		return requireRow(res, id)
	})
	if err != nil {
		return fmt.Errorf("failing document %d: %w", id, err)
	}
	return nil
}

// ListClauses returns the document's clauses ordered by clause_index.
func (s *Store) ListClauses(ctx context.Context, documentID int64) ([]Clause, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, document_id, clause_index, section_number, title, category, confidence, page_start, page_end, text
		FROM clauses WHERE document_id = $1 ORDER BY clause_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing clauses: %w", err)
	}
	defer rows.Close()

	clauses := []Clause{}
	for rows.Next() {
		var (
			c          Clause
			section    sql.NullString
			title      sql.NullString
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ClauseIndex, &section, &title,
			&c.Category, &confidence, &c.PageStart, &c.PageEnd, &c.Text); err != nil {
			return nil, fmt.Errorf("scanning clause row: %w", err)
		}
		if section.Valid {
			c.SectionNumber = &section.String
		}
		if title.Valid {
			c.Title = &title.String
		}
		if confidence.Valid {
			c.Confidence = &confidence.Float64
		}
		clauses = append(clauses, c)
	}
	return clauses, rows.Err()
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}
	return nil
}

// nullableString maps a nil or empty string pointer to NULL.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
