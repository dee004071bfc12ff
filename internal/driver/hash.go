package driver

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Digest identifies one analysis: its sources, libraries, class files and
// the settings that change its outcome.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// combineDigest: H(content || dep1 || dep2 ...). deps are already in a
// deterministic order.
func combineDigest(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// keyWriter feeds length-prefixed fields so adjacent fields cannot run
// together.
type keyWriter struct {
	h hash.Hash
}

func newKeyWriter() keyWriter { return keyWriter{h: sha256.New()} }

func (k keyWriter) str(s string) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
	_, _ = k.h.Write(n[:])
	_, _ = k.h.Write([]byte(s))
}

func (k keyWriter) num(v int) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(v))
	_, _ = k.h.Write(n[:])
}

func (k keyWriter) sum() Digest {
	var out Digest
	copy(out[:], k.h.Sum(nil))
	return out
}
