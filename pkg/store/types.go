// Package store implements the append-only, content-addressed Store
// contract of spec §4.2: a repository mapping package identity ->
// artifact hash -> on-disk directory, serving as the build cache. The
// reference implementation is backed by modernc.org/sqlite with
// golang-migrate-driven schema migrations, in the shape of the teacher's
// pkg/stores.SQLiteStore.
package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// ArtifactId is a BLAKE3 hash of a directory's canonical serialization
// (see HashDirectory).
type ArtifactId [32]byte

// Hex renders the ArtifactId as lowercase hex, the form used for the
// content/<artifact_hex>/ directory name (spec §6).
func (a ArtifactId) Hex() string { return hex.EncodeToString(a[:]) }

func (a ArtifactId) String() string { return a.Hex() }

// ParseArtifactId decodes a hex-encoded ArtifactId.
func ParseArtifactId(s string) (ArtifactId, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ArtifactId{}, err
	}
	var a ArtifactId
	if len(b) != len(a) {
		return ArtifactId{}, fmt.Errorf("store: artifact id must be %d bytes, got %d", len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// StorePackage binds a PackageId to an ArtifactId at a point in time.
// Multiple StorePackage entries may share a PackageId over time; "the
// current binding" is the most recently created one (spec §3).
//
// StructuralHash extends spec §6's reference packages(package, artifact,
// created_at) schema with a third column recording the xpkg.StructuralHash
// in effect when the binding was created. The Builder's cache-hit check
// (spec §4.4) needs to compare "would this build produce the same
// inputs" against a past binding; the PackageId and ArtifactId alone
// don't carry that information, so the structural hash is persisted
// alongside them rather than recomputed from store state that isn't
// kept (the resolved dependency list, metadata, and config value are
// Plan-side, not Store-side).
type StorePackage struct {
	PackageId      xpkg.Id
	ArtifactId     ArtifactId
	StructuralHash [32]byte
	CreatedAt      time.Time
}

// StoreArtifact records when an artifact was first registered.
type StoreArtifact struct {
	ArtifactId ArtifactId
	CreatedAt  time.Time
}

// Store is the append-only, idempotent, content-addressed repository
// contract (spec §4.2).
type Store interface {
	// RegisterArtifact computes the canonical hash of the directory
	// rooted at path and, if not already present, atomically moves path
	// into the content-addressed store location. If the artifact is
	// already present this is a no-op that returns the existing id; on a
	// concurrent-registration race the already-stored content is kept
	// and the caller's directory is discarded.
	RegisterArtifact(ctx context.Context, path string) (ArtifactId, error)

	// RegisterPackage inserts a binding (pkg.Id, artifact, structuralHash,
	// now). Idempotent on (id, artifact).
	RegisterPackage(ctx context.Context, pkg *xpkg.Package, artifact ArtifactId, structuralHash [32]byte) (StorePackage, error)

	// Packages yields bindings for id in descending CreatedAt order (most
	// recent first).
	Packages(ctx context.Context, id xpkg.Id) ([]StorePackage, error)

	// Artifact returns the StoreArtifact record for h, or
	// engineerr.KindStoreMissingArtifact if absent.
	Artifact(ctx context.Context, h ArtifactId) (StoreArtifact, error)

	// Content returns the on-disk directory for h, or
	// engineerr.KindStoreMissingArtifact if absent.
	Content(ctx context.Context, h ArtifactId) (string, error)

	// Close releases any resources (e.g. the underlying database handle).
	Close() error
}
