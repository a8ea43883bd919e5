package store

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
)

// HashDirectory computes the canonical ArtifactId of the directory
// rooted at root, per spec §4.2: walk the directory in sorted file-name
// order; for each regular file, feed its path relative to root, its
// permission mode/gid/uid/length (big-endian), and its contents into the
// hasher. Symlinks and other non-regular entries are skipped.
// Directories are not hashed directly; their presence is inferred from
// the paths of the files they contain — so an empty directory tree
// hashes identically to any other empty directory tree (spec §9's
// documented corner case).
func HashDirectory(root string) (ArtifactId, error) {
	var paths []string
	if err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, rel)
		}
		return nil
	}); err != nil {
		return ArtifactId{}, err
	}
	sort.Strings(paths)

	h := blake3.New()
	for _, rel := range paths {
		full := filepath.Join(root, rel)
		info, err := os.Lstat(full)
		if err != nil {
			return ArtifactId{}, err
		}
		if err := hashFile(h, rel, full, info); err != nil {
			return ArtifactId{}, err
		}
	}

	var out ArtifactId
	copy(out[:], h.Sum(nil))
	return out, nil
}

func hashFile(h *blake3.Hasher, rel, full string, info os.FileInfo) error {
	h.Write([]byte(rel))

	var mode, gid, uid, size uint64
	mode = uint64(info.Mode().Perm())
	size = uint64(info.Size())
	if st, ok := info.Sys().(*unix.Stat_t); ok {
		gid = uint64(st.Gid)
		uid = uint64(st.Uid)
	}
	writeBE(h, mode)
	writeBE(h, gid)
	writeBE(h, uid)
	writeBE(h, size)

	f, err := os.Open(full)
	if err != nil {
		return err
	}
	defer f.Close()
	buf := make([]byte, 64*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return nil
}

func writeBE(h *blake3.Hasher, v uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
	h.Write(b[:])
}
