package alttext

import (
	"context"
	"database/sql"
	_ "embed"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tailscale/squibble"
	_ "modernc.org/sqlite"

	"github.com/jmorikawa/alttext/document"
)

//go:embed db/latest_schema.sql
var dbSchema string

var schema = &squibble.Schema{
	Current: dbSchema,
}

// DB records what each run produced: one documents row per processed file and
// one captions row per image description.
type DB struct {
	mu sync.Mutex
	db *sql.DB

	filepath string
}

// Document is one processed file.
type Document struct {
	Id            int
	InputPath     string
	Format        string // extension without the dot, e.g. "pptx"
	OutputPath    sql.NullString
	ImagesUpdated int
	ProcessedAt   time.Time
}

// Caption is one image description belonging to a Document.
type Caption struct {
	Id         int
	DocumentId int
	Location   string
	Caption    string
	OK         bool
}

func (db *DB) Close() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.db.Close()
}

func NewDB(ctx context.Context, fname string) (*DB, error) {
	// Open the DB but flip on the cleaner timestamps from Go
	sqldb, err := sql.Open("sqlite", fname+"?_time_format=sqlite")
	if err != nil {
		return nil, err
	}
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, err
	}
	if err := schema.Apply(ctx, sqldb); err != nil {
		return nil, err
	}

	return &DB{db: sqldb, filepath: fname}, nil
}

// RecordRun inserts the document row and its caption rows in one transaction.
// outputPath is empty when no output file was written.
func (db *DB) RecordRun(ctx context.Context, inputPath, outputPath string, outcomes []document.Outcome, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	txn, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	updated := 0
	for _, o := range outcomes {
		if o.Caption != "" {
			updated++
		}
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(inputPath)), ".")
	out := sql.NullString{String: outputPath, Valid: outputPath != ""}
	res, err := txn.ExecContext(ctx,
		"INSERT INTO documents (input_path, format, output_path, images_updated, processed_at) VALUES (?,?,?,?,?)",
		inputPath, format, out, updated, at)
	if err != nil {
		return err
	}
	docId, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, o := range outcomes {
		if _, err := txn.ExecContext(ctx,
			"INSERT INTO captions (document_id, location, caption, ok) VALUES (?,?,?,?)",
			docId, o.Location, o.Caption, o.OK); err != nil {
			return err
		}
	}

	return txn.Commit()
}

// Documents returns the run history, newest first.
func (db *DB) Documents(ctx context.Context) ([]*Document, error) {
	rows, err := db.db.QueryContext(ctx,
		"SELECT id, input_path, format, output_path, images_updated, processed_at FROM documents ORDER BY processed_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc := &Document{}
		if err := rows.Scan(&doc.Id, &doc.InputPath, &doc.Format, &doc.OutputPath, &doc.ImagesUpdated, &doc.ProcessedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Captions returns the caption rows for a document.
func (db *DB) Captions(ctx context.Context, documentId int) ([]*Caption, error) {
	rows, err := db.db.QueryContext(ctx,
		"SELECT id, document_id, location, caption, ok FROM captions WHERE document_id=? ORDER BY id",
		documentId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var caps []*Caption
	for rows.Next() {
		c := &Caption{}
		var text sql.NullString
		if err := rows.Scan(&c.Id, &c.DocumentId, &c.Location, &text, &c.OK); err != nil {
			return nil, err
		}
		if text.Valid {
			c.Caption = text.String
		}
		caps = append(caps, c)
	}
	return caps, rows.Err()
}
