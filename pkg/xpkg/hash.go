package xpkg

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
)

// StructuralHash computes the structural hash of a package as it exists
// at a given point in planning: its id, its fully-resolved dependency
// list (supplied by the caller — the Plan knows the edges, Package does
// not), its metadata, and its current configuration value. Two builds of
// the same id produce equal structural hashes iff nothing that could
// affect the build recipe's inputs changed, which is what the Builder's
// cache-hit check (spec §4.4) consults before doing any work.
func StructuralHash(pkg *Package, resolvedDeps []Id) ([32]byte, error) {
	depStrs := make([]string, len(resolvedDeps))
	for i, d := range resolvedDeps {
		depStrs[i] = d.String()
	}
	sort.Strings(depStrs)

	metaJSON, err := json.Marshal(pkg.Metadata)
	if err != nil {
		return [32]byte{}, fmt.Errorf("structural hash: marshal metadata: %w", err)
	}
	cfgJSON, err := json.Marshal(pkg.Config.Current)
	if err != nil {
		return [32]byte{}, fmt.Errorf("structural hash: marshal config: %w", err)
	}

	h := blake3.New()
	writeField(h, []byte(pkg.Id.String()))
	for _, d := range depStrs {
		writeField(h, []byte(d))
	}
	writeField(h, metaJSON)
	writeField(h, cfgJSON)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

// writeField feeds a length-prefixed field into the hasher so that, e.g.,
// ("ab","c") and ("a","bc") never collide.
func writeField(h *blake3.Hasher, b []byte) {
	var lenBuf [8]byte
	n := uint64(len(b))
	for i := 0; i < 8; i++ {
		lenBuf[i] = byte(n >> (56 - 8*i))
	}
	h.Write(lenBuf[:])
	h.Write(b)
}
