package graphstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/memoryd/internal/logging"
)

// timeFormat is the canonical timestamp encoding for all SQLite values.
const timeFormat = time.RFC3339Nano

// attributionColumns is the shared column set for creator/updater attribution.
const attributionColumns = `
	created_by_user           TEXT NOT NULL DEFAULT '',
	created_by_assistant_name TEXT NOT NULL DEFAULT '',
	created_by_assistant_type TEXT NOT NULL DEFAULT '',
	updated_by_user           TEXT NOT NULL DEFAULT '',
	updated_by_assistant_name TEXT NOT NULL DEFAULT '',
	updated_by_assistant_type TEXT NOT NULL DEFAULT '',
	created_at                TEXT NOT NULL,
	updated_at                TEXT NOT NULL`

// Open creates or opens the graph database at path. The returned handle is
// shared across tenants; tenant isolation is enforced per query by the scope
// discipline, not per connection.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return db, nil
}

// Migrate creates the schema if absent.
func Migrate(ctx context.Context, db *sql.DB) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS entities (
		id          TEXT PRIMARY KEY,
		tenant_id   TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		name        TEXT NOT NULL,
		metadata    TEXT NOT NULL DEFAULT '{}',%[1]s
	);
	CREATE INDEX IF NOT EXISTS idx_entities_tenant ON entities(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_entities_tenant_type ON entities(tenant_id, entity_type);

	CREATE TABLE IF NOT EXISTS relations (
		id             TEXT PRIMARY KEY,
		tenant_id      TEXT NOT NULL,
		from_entity_id TEXT NOT NULL,
		predicate      TEXT NOT NULL,
		to_entity_id   TEXT NOT NULL,
		strength       REAL NOT NULL DEFAULT 1.0,
		metadata       TEXT NOT NULL DEFAULT '{}',%[1]s
	);
	CREATE INDEX IF NOT EXISTS idx_relations_tenant ON relations(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_relations_tenant_from ON relations(tenant_id, from_entity_id);
	CREATE INDEX IF NOT EXISTS idx_relations_tenant_to ON relations(tenant_id, to_entity_id);

	CREATE TABLE IF NOT EXISTS observations (
		id        TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		content   TEXT NOT NULL,
		source    TEXT NOT NULL DEFAULT '',
		metadata  TEXT NOT NULL DEFAULT '{}',%[1]s
	);
	CREATE INDEX IF NOT EXISTS idx_observations_tenant ON observations(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_observations_tenant_entity ON observations(tenant_id, entity_id);
	`, attributionColumns)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Store provides tenant-scoped CRUD over the three graph kinds.
type Store struct {
	log *logging.Logger
}

// New creates a Store.
func New(log *logging.Logger) *Store {
	if log == nil {
		log = logging.NewNop()
	}
	return &Store{log: log.Named("graphstore")}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

// encodeTime renders a timestamp for storage.
func encodeTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// decodeTime parses a stored timestamp.
func decodeTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// defaultMetadata substitutes the empty JSON object for blank metadata.
func defaultMetadata(metadata string) string {
	if strings.TrimSpace(metadata) == "" {
		return "{}"
	}
	return metadata
}

// orderClause resolves a Page's sort against a per-kind allow-list.
func orderClause(page Page, allowed map[string]string) (string, error) {
	col, ok := allowed[page.SortKey]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, page.SortKey)
	}
	dir := "ASC"
	if page.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s LIMIT ? OFFSET ?", col, dir), nil
}

// likePattern escapes a substring for a case-insensitive LIKE match.
func likePattern(substr string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(substr)
	return "%" + escaped + "%"
}
