package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/catdeal3r/xuehua/pkg/engineerr"
	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store on top of a modernc.org/sqlite database
// plus a content/ directory of artifact trees, in the shape of the
// teacher's SQLiteStore: one connection pool, WAL mode, golang-migrate
// schema management.
type SQLiteStore struct {
	db      *sql.DB
	dbPath  string
	content string // root directory holding content/<artifact_hex>/
}

// Config configures a SQLiteStore.
type Config struct {
	// DBPath is the sqlite database file (e.g. <root>/store.db).
	DBPath string
	// ContentDir is the root under which registered artifacts live, one
	// directory per artifact: ContentDir/<artifact_hex>/.
	ContentDir string
}

// Open creates, initializes, and migrates a SQLiteStore.
func Open(ctx context.Context, cfg Config) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("store: DBPath is required")
	}
	if cfg.ContentDir == "" {
		return nil, fmt.Errorf("store: ContentDir is required")
	}
	if err := os.MkdirAll(cfg.ContentDir, 0o755); err != nil {
		return nil, engineerr.NewStoreExternal("mkdir content dir", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, engineerr.NewStoreExternal("mkdir db dir", err)
	}

	s := &SQLiteStore{dbPath: cfg.DBPath, content: cfg.ContentDir}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	if err := s.migrate(); err != nil {
		_ = s.db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate", s.dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return engineerr.NewStoreExternal("open database", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite + WAL: serialize writers through one conn
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return engineerr.NewStoreExternal("ping database", err)
	}
	s.db = db
	return nil
}

func (s *SQLiteStore) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return engineerr.NewStoreExternal("open migration source", err)
	}
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return engineerr.NewStoreExternal("open migration driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return engineerr.NewStoreExternal("build migrator", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return engineerr.NewStoreExternal("run migrations", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) artifactPath(id ArtifactId) string {
	return filepath.Join(s.content, id.Hex())
}

// RegisterArtifact hashes the directory at path and, if it is not
// already present, atomically renames it into the content store. The
// rename is atomic within the same filesystem; path must therefore be
// a scratch directory the Builder created under the same root as
// ContentDir (the Builder's per-build environment convention, spec
// §4.3). On a concurrent-registration race — two builders finishing an
// equivalent node at once — the loser's directory is discarded and the
// winner's content is kept, since both hash identically by definition.
func (s *SQLiteStore) RegisterArtifact(ctx context.Context, path string) (ArtifactId, error) {
	id, err := HashDirectory(path)
	if err != nil {
		return ArtifactId{}, engineerr.NewStoreExternal("hash artifact directory", err)
	}

	dest := s.artifactPath(id)
	if _, err := os.Stat(dest); err == nil {
		// Already present under this hash; discard the caller's copy.
		_ = os.RemoveAll(path)
	} else if !os.IsNotExist(err) {
		return ArtifactId{}, engineerr.NewStoreExternal("stat artifact dest", err)
	} else {
		if err := os.Rename(path, dest); err != nil {
			if os.IsExist(err) {
				_ = os.RemoveAll(path)
			} else {
				return ArtifactId{}, engineerr.NewStoreExternal("install artifact", err)
			}
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artifacts (artifact, created_at) VALUES (?, ?) ON CONFLICT(artifact) DO NOTHING`,
		id[:], time.Now().UTC())
	if err != nil {
		return ArtifactId{}, engineerr.NewStoreExternal("insert artifact row", err)
	}
	return id, nil
}

// RegisterPackage appends a binding row. Idempotent on (id, artifact):
// re-registering the same pair is a harmless no-op that still returns
// the existing row's timestamp rather than creating a duplicate.
func (s *SQLiteStore) RegisterPackage(ctx context.Context, pkg *xpkg.Package, artifact ArtifactId, structuralHash [32]byte) (StorePackage, error) {
	existing, err := s.latestBinding(ctx, pkg.Id, artifact)
	if err != nil {
		return StorePackage{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO packages (package, artifact, structural_hash, created_at) VALUES (?, ?, ?, ?)`,
		pkg.Id.String(), artifact[:], structuralHash[:], now); err != nil {
		return StorePackage{}, engineerr.NewStoreExternal("insert package row", err)
	}
	return StorePackage{PackageId: pkg.Id, ArtifactId: artifact, StructuralHash: structuralHash, CreatedAt: now}, nil
}

func (s *SQLiteStore) latestBinding(ctx context.Context, id xpkg.Id, artifact ArtifactId) (*StorePackage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT structural_hash, created_at FROM packages WHERE package = ? AND artifact = ? ORDER BY created_at DESC LIMIT 1`,
		id.String(), artifact[:])
	var rawHash []byte
	var createdAt time.Time
	switch err := row.Scan(&rawHash, &createdAt); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, engineerr.NewStoreExternal("query package binding", err)
	}
	var hash [32]byte
	copy(hash[:], rawHash)
	return &StorePackage{PackageId: id, ArtifactId: artifact, StructuralHash: hash, CreatedAt: createdAt}, nil
}

// Packages returns all bindings for id, most recent first.
func (s *SQLiteStore) Packages(ctx context.Context, id xpkg.Id) ([]StorePackage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT artifact, structural_hash, created_at FROM packages WHERE package = ? ORDER BY created_at DESC`,
		id.String())
	if err != nil {
		return nil, engineerr.NewStoreExternal("query packages", err)
	}
	defer rows.Close()

	var out []StorePackage
	for rows.Next() {
		var rawArtifact, rawHash []byte
		var createdAt time.Time
		if err := rows.Scan(&rawArtifact, &rawHash, &createdAt); err != nil {
			return nil, engineerr.NewStoreExternal("scan package row", err)
		}
		var artifact ArtifactId
		copy(artifact[:], rawArtifact)
		var hash [32]byte
		copy(hash[:], rawHash)
		out = append(out, StorePackage{PackageId: id, ArtifactId: artifact, StructuralHash: hash, CreatedAt: createdAt})
	}
	if err := rows.Err(); err != nil {
		return nil, engineerr.NewStoreExternal("iterate packages", err)
	}
	return out, nil
}

// Artifact returns the StoreArtifact record for h.
func (s *SQLiteStore) Artifact(ctx context.Context, h ArtifactId) (StoreArtifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT created_at FROM artifacts WHERE artifact = ?`, h[:])
	var createdAt time.Time
	switch err := row.Scan(&createdAt); {
	case errors.Is(err, sql.ErrNoRows):
		return StoreArtifact{}, engineerr.NewMissingArtifact(h.Hex())
	case err != nil:
		return StoreArtifact{}, engineerr.NewStoreExternal("query artifact", err)
	}
	return StoreArtifact{ArtifactId: h, CreatedAt: createdAt}, nil
}

// Content returns the on-disk directory for h.
func (s *SQLiteStore) Content(ctx context.Context, h ArtifactId) (string, error) {
	if _, err := s.Artifact(ctx, h); err != nil {
		return "", err
	}
	return s.artifactPath(h), nil
}
