// Package store keeps compiled programs in a SQLite database so they can be
// listed and executed later without their source.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/codec"
	"github.com/funvibe/walc/internal/logging"
	"github.com/funvibe/walc/internal/vm"
)

// ErrNotFound indicates the requested program doesn't exist
var ErrNotFound = errors.New("program not found")

const schema = `CREATE TABLE IF NOT EXISTS programs (
	id         TEXT PRIMARY KEY,
	digest     TEXT NOT NULL UNIQUE,
	tree       TEXT NOT NULL,
	code       BLOB NOT NULL,
	names      TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// Program is one stored artifact.
type Program struct {
	ID      string
	Digest  string
	Tree    ast.Node
	Code    []byte
	Names   []string
	Created time.Time
}

// Store handles SQLite storage for compiled programs
type Store struct {
	db       *sql.DB
	path     string
	maxStack int
	mu       sync.Mutex
}

// Open opens (creating if needed) the database at path. ":memory:" works
// for throwaway stores.
func Open(path string, maxStack int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// each pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	logging.Get("store").Debugf("opened %s", path)
	return &Store{db: db, path: path, maxStack: maxStack}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Digest identifies a compiled program by its stream and slot table.
func Digest(code []byte, names []string) string {
	h := sha256.New()
	h.Write(code)
	for _, name := range names {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(name)))
		h.Write(n[:])
		h.Write([]byte(name))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Put compiles tree and stores it. A tree whose compiled form is already
// stored returns the existing program.
func (s *Store) Put(ctx context.Context, tree ast.Node) (*Program, error) {
	compiled, err := vm.Compile(tree)
	if err != nil {
		return nil, fmt.Errorf("compiling program: %w", err)
	}
	source, err := codec.Encode(codec.JSON, tree)
	if err != nil {
		return nil, fmt.Errorf("encoding tree: %w", err)
	}
	names, err := json.Marshal(compiled.Names)
	if err != nil {
		return nil, fmt.Errorf("encoding slot table: %w", err)
	}
	digest := Digest(compiled.Code, compiled.Names)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.byDigest(ctx, digest); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p := &Program{
		ID:      uuid.NewString(),
		Digest:  digest,
		Tree:    tree,
		Code:    compiled.Code,
		Names:   compiled.Names,
		Created: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO programs (id, digest, tree, code, names, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, p.Digest, string(source), p.Code, string(names), p.Created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("saving program: %w", err)
	}
	logging.Get("store").Infof("stored program %s (%d bytes)", p.ID, len(p.Code))
	return p, nil
}

const selectColumns = "SELECT id, digest, tree, code, names, created_at FROM programs"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (*Program, error) {
	var (
		p       Program
		tree    string
		names   string
		created string
	)
	if err := row.Scan(&p.ID, &p.Digest, &tree, &p.Code, &names, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}

	var err error
	if p.Tree, err = codec.Decode(codec.JSON, []byte(tree)); err != nil {
		return nil, fmt.Errorf("program %s: %w", p.ID, err)
	}
	if err = json.Unmarshal([]byte(names), &p.Names); err != nil {
		return nil, fmt.Errorf("program %s: bad slot table: %w", p.ID, err)
	}
	if p.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("program %s: bad timestamp: %w", p.ID, err)
	}
	return &p, nil
}

func (s *Store) byDigest(ctx context.Context, digest string) (*Program, error) {
	return scanProgram(s.db.QueryRowContext(ctx, selectColumns+" WHERE digest = ?", digest))
}

// Get retrieves a program by ID
func (s *Store) Get(ctx context.Context, id string) (*Program, error) {
	return scanProgram(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
}

// List returns every stored program, oldest first
func (s *Store) List(ctx context.Context) ([]*Program, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	defer rows.Close()

	var programs []*Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// Delete removes a program
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM programs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Run interprets the stored stream of a program
func (s *Store) Run(ctx context.Context, id string) (float64, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return vm.New(p.Code, vm.WithMaxStack(s.maxStack), vm.WithNames(p.Names)).Run()
}
