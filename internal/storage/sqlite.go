// Package storage persists run output (symbols, edges, summaries) in a
// local SQLite database and doubles as a local similarity store for
// runs without a remote vector database.
package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"comprehend/internal/graph"
	"comprehend/internal/vectorstore"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ vectorstore.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS symbols (
			id TEXT PRIMARY KEY,
			kind TEXT,
			name TEXT,
			qualified_name TEXT,
			package TEXT,
			file_path TEXT,
			start_line INTEGER,
			end_line INTEGER,
			indent INTEGER,
			content TEXT,
			parent_id TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			from_id TEXT,
			to_id TEXT,
			kind TEXT,
			status TEXT,
			target_name TEXT,
			PRIMARY KEY (from_id, to_id, kind, target_name)
		);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			symbol_id TEXT PRIMARY KEY,
			text TEXT,
			ordinal INTEGER,
			failed INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			namespace TEXT,
			key TEXT,
			metadata JSON,
			embedding BLOB,
			PRIMARY KEY (namespace, key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_ns ON chunks(namespace);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun persists the full run output in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, symbols []*graph.Symbol, edges []graph.Edge, summaries []graph.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	symStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (id, kind, name, qualified_name, package, file_path, start_line, end_line, indent, content, parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind,
			name=excluded.name,
			qualified_name=excluded.qualified_name,
			package=excluded.package,
			file_path=excluded.file_path,
			start_line=excluded.start_line,
			end_line=excluded.end_line,
			indent=excluded.indent,
			content=excluded.content,
			parent_id=excluded.parent_id
	`)
	if err != nil {
		return err
	}
	defer symStmt.Close()

	for _, sym := range symbols {
		if _, err := symStmt.Exec(sym.ID, sym.Kind, sym.Name, sym.QualifiedName, sym.Package,
			sym.FilePath, sym.StartLine, sym.EndLine, sym.Indent, sym.Content, sym.ParentID); err != nil {
			return err
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (from_id, to_id, kind, status, target_name) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(from_id, to_id, kind, target_name) DO UPDATE SET status=excluded.status
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, e := range edges {
		if _, err := edgeStmt.Exec(e.From, e.To, e.Kind, e.Status, e.TargetName); err != nil {
			return err
		}
	}

	sumStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO summaries (symbol_id, text, ordinal, failed) VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol_id) DO UPDATE SET text=excluded.text, ordinal=excluded.ordinal, failed=excluded.failed
	`)
	if err != nil {
		return err
	}
	defer sumStmt.Close()

	for _, sum := range summaries {
		if _, err := sumStmt.Exec(sum.SymbolID, sum.Text, sum.Ordinal, sum.Failed); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadRun reads back the persisted symbols, edges, and summaries.
func (s *SQLiteStore) LoadRun(ctx context.Context) ([]*graph.Symbol, []graph.Edge, []graph.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, name, qualified_name, package, file_path, start_line, end_line, indent, content, parent_id FROM symbols`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []*graph.Symbol
	for rows.Next() {
		var sym graph.Symbol
		if err := rows.Scan(&sym.ID, &sym.Kind, &sym.Name, &sym.QualifiedName, &sym.Package,
			&sym.FilePath, &sym.StartLine, &sym.EndLine, &sym.Indent, &sym.Content, &sym.ParentID); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, &sym)
	}

	edgeRows, err := s.db.QueryContext(ctx, `SELECT from_id, to_id, kind, status, target_name FROM edges`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	var edges []graph.Edge
	for edgeRows.Next() {
		var e graph.Edge
		if err := edgeRows.Scan(&e.From, &e.To, &e.Kind, &e.Status, &e.TargetName); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}

	sumRows, err := s.db.QueryContext(ctx, `SELECT symbol_id, text, ordinal, failed FROM summaries`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer sumRows.Close()

	var summaries []graph.Summary
	for sumRows.Next() {
		var sum graph.Summary
		if err := sumRows.Scan(&sum.SymbolID, &sum.Text, &sum.Ordinal, &sum.Failed); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, sum)
	}

	return symbols, edges, summaries, nil
}

// --- vectorstore.Store implementation ---

// Put upserts one embedding under (namespace, key).
func (s *SQLiteStore) Put(ctx context.Context, namespace, key string, vector []float32, md vectorstore.Metadata) error {
	metadata, err := json.Marshal(md)
	if err != nil {
		return err
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vector); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunks (namespace, key, metadata, embedding) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET metadata=excluded.metadata, embedding=excluded.embedding
	`, namespace, key, metadata, buf.Bytes())
	return err
}

// Query scans the namespace and ranks by cosine similarity in memory.
// Fast enough for small and medium codebases; a remote store handles
// the rest.
func (s *SQLiteStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]vectorstore.Match, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, metadata, embedding FROM chunks WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []vectorstore.Match
	for rows.Next() {
		var key string
		var metadata, blob []byte
		if err := rows.Scan(&key, &metadata, &blob); err != nil {
			return nil, err
		}

		var md vectorstore.Metadata
		if err := json.Unmarshal(metadata, &md); err != nil {
			continue
		}
		embedding := make([]float32, len(blob)/4)
		if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &embedding); err != nil {
			continue
		}

		matches = append(matches, vectorstore.Match{
			Key:      key,
			Score:    cosineSimilarity(vector, embedding),
			Metadata: md,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float32
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB))))
}
