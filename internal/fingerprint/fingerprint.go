// Package fingerprint computes the content hash of a filtered source tree. The
// hash is the cache key that ties a build plan to cached artifacts, so it depends
// only on relative paths, contents and the executable bit.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/source"
)

// formatHeader versions the hashed stream layout. Changing the layout must change
// the header so old and new fingerprints never collide.
const formatHeader = "buildplan-source-v1"

const sriPrefix = "sha256-"

// Fingerprint is an SRI-formatted sha256 digest ("sha256-<base64>").
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Hex returns the digest as lowercase hex, or "" if f is malformed.
func (f Fingerprint) Hex() string {
	raw, err := f.digest()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(raw)
}

// Validate checks that f is a well-formed sha256 SRI string.
func (f Fingerprint) Validate() error {
	_, err := f.digest()
	return err
}

func (f Fingerprint) digest() ([]byte, error) {
	enc, ok := strings.CutPrefix(string(f), sriPrefix)
	if !ok {
		return nil, fmt.Errorf("fingerprint %q lacks %q prefix", string(f), sriPrefix)
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %q: %w", string(f), err)
	}
	if len(raw) != sha256.Size {
		return nil, fmt.Errorf("fingerprint %q has %d bytes", string(f), len(raw))
	}
	return raw, nil
}

// Compute hashes tree. Files are visited in lexicographic order of relative path;
// for each file the kind marker, the path and the content (link target for
// symlinks) are written length-prefixed. Empty directories contribute nothing.
func Compute(ctx context.Context, tree *source.Tree) (Fingerprint, error) {
	files := make([]source.File, len(tree.Files))
	copy(files, tree.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	h := sha256.New()
	writeField(h, []byte(formatHeader))
	writeUint(h, uint64(len(files)))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", perrors.Canceled("fingerprint", err)
		}
		if err := writeFile(h, f); err != nil {
			return "", err
		}
	}

	return Fingerprint(sriPrefix + base64.StdEncoding.EncodeToString(h.Sum(nil))), nil
}

func writeFile(h hash.Hash, f source.File) error {
	h.Write([]byte{byte(f.Kind)})
	writeField(h, []byte(f.Path))

	if f.Kind == source.KindSymlink {
		target, err := os.Readlink(f.Abs)
		if err != nil {
			return perrors.FileSystemError("readlink", f.Path, err)
		}
		writeField(h, []byte(target))
		return nil
	}

	// #nosec G304 - f.Abs comes from the filtered walk of the workspace root
	fh, err := os.Open(f.Abs)
	if err != nil {
		return perrors.FileSystemError("open", f.Path, err)
	}
	defer func() { _ = fh.Close() }()

	info, err := fh.Stat()
	if err != nil {
		return perrors.FileSystemError("stat", f.Path, err)
	}
	size := info.Size()
	writeUint(h, uint64(size))
	n, err := io.CopyN(h, fh, size)
	if err != nil || n != size {
		return perrors.FileSystemError("read", f.Path, fmt.Errorf("read %d of %d bytes: %w", n, size, err))
	}
	return nil
}

func writeUint(h hash.Hash, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	h.Write(b[:])
}

func writeField(h hash.Hash, data []byte) {
	writeUint(h, uint64(len(data)))
	h.Write(data)
}

// Dir filters root with patterns and fingerprints the result.
func Dir(ctx context.Context, root string, patterns []string, opts source.Options) (Fingerprint, *source.Tree, error) {
	tree, err := source.Filter(ctx, root, patterns, opts)
	if err != nil {
		return "", nil, err
	}
	fp, err := Compute(ctx, tree)
	if err != nil {
		return "", nil, err
	}
	return fp, tree, nil
}
