package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joescharf/hostel/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryDSN opens a private in-memory database that lives as long as the store.
const MemoryDSN = ":memory:"

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
//
// Ordering is kept in the position column: Create takes a position below the
// current minimum (newest first), Import one above the current maximum.
type SQLiteStore struct {
	db       *sql.DB
	revision atomic.Uint64
	now      func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database.
// dsn is either MemoryDSN or a file path.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	if dsn != MemoryDSN && !strings.HasPrefix(dsn, "file:") {
		// Ensure parent directory exists
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serializes all access and, for :memory:, keeps the
	// database alive: every new connection would get its own empty database.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if dsn != MemoryDSN {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Revision() uint64 {
	return s.revision.Load()
}

const complaintColumns = `id, title, description, category, priority, status, student_id, student_name,
	room_number, hostel_block, assigned_to, created_at, updated_at, resolved_at, feedback, rating`

func (s *SQLiteStore) Create(ctx context.Context, draft models.ComplaintDraft, owner *models.User) (*models.Complaint, error) {
	c := newComplaint(draft, owner, s.now())
	if err := s.insert(ctx, c, "SELECT COALESCE(MIN(position), 0) - 1 FROM complaints"); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) Import(ctx context.Context, c *models.Complaint) error {
	prepareImport(c, s.now())
	if err := s.insert(ctx, c, "SELECT COALESCE(MAX(position), 0) + 1 FROM complaints"); err != nil {
		return fmt.Errorf("import complaint: %w", err)
	}
	return nil
}

// insert writes c at the position computed by positionQuery inside one transaction.
func (s *SQLiteStore) insert(ctx context.Context, c *models.Complaint, positionQuery string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var position int64
	if err := tx.QueryRowContext(ctx, positionQuery).Scan(&position); err != nil {
		return fmt.Errorf("compute position: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO complaints (`+complaintColumns+`, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Description, string(c.Category), string(c.Priority), string(c.Status),
		c.StudentID, c.StudentName, c.RoomNumber, c.HostelBlock, c.AssignedTo,
		c.CreatedAt, c.UpdatedAt, nullTime(c.ResolvedAt), c.Feedback, c.Rating, position,
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.revision.Add(1)
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Complaint, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = ?`, id)
	c, err := scanComplaint(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) List(ctx context.Context, scope Scope) ([]*models.Complaint, error) {
	var rows *sql.Rows
	var err error
	if scope.StudentID != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+complaintColumns+` FROM complaints WHERE student_id = ? ORDER BY position`, scope.StudentID)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+complaintColumns+` FROM complaints ORDER BY position`)
	}
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	complaints := []*models.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		complaints = append(complaints, c)
	}
	return complaints, rows.Err()
}

func (s *SQLiteStore) Replace(ctx context.Context, c *models.Complaint) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE complaints SET title=?, description=?, category=?, priority=?, status=?, student_id=?, student_name=?,
		room_number=?, hostel_block=?, assigned_to=?, created_at=?, updated_at=?, resolved_at=?, feedback=?, rating=?
		WHERE id=?`,
		c.Title, c.Description, string(c.Category), string(c.Priority), string(c.Status),
		c.StudentID, c.StudentName, c.RoomNumber, c.HostelBlock, c.AssignedTo,
		c.CreatedAt, c.UpdatedAt, nullTime(c.ResolvedAt), c.Feedback, c.Rating, c.ID,
	)
	if err != nil {
		return fmt.Errorf("replace complaint: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, c.ID)
	}
	s.revision.Add(1)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(r rowScanner) (*models.Complaint, error) {
	c := &models.Complaint{}
	var category, priority, status string
	var resolvedAt sql.NullTime

	err := r.Scan(&c.ID, &c.Title, &c.Description, &category, &priority, &status,
		&c.StudentID, &c.StudentName, &c.RoomNumber, &c.HostelBlock, &c.AssignedTo,
		&c.CreatedAt, &c.UpdatedAt, &resolvedAt, &c.Feedback, &c.Rating)
	if err != nil {
		return nil, err
	}

	c.Category = models.ComplaintCategory(category)
	c.Priority = models.ComplaintPriority(priority)
	c.Status = models.ComplaintStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}
	return c, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
