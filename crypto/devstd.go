package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Sha3Hasher is a development-only Hasher. It does NOT implement an actual
// arithmetization-friendly permutation (RPO/Poseidon); it exists so the rest
// of the kernel (commitment composition, SMT/MMR node hashing, advice-input
// construction) can be built and tested deterministically against a real,
// fast hash before a circuit-native permutation is wired in.
type Sha3Hasher struct{}

var _ Hasher = Sha3Hasher{}

func (Sha3Hasher) Hash1(a Word) Word {
	b := a.Bytes()
	return hashSlice(b[:])
}

func (Sha3Hasher) Hash2(a, b Word) Word {
	ab := a.Bytes()
	bb := b.Bytes()
	buf := make([]byte, 0, 64)
	buf = append(buf, ab[:]...)
	buf = append(buf, bb[:]...)
	return hashSlice(buf)
}

func (Sha3Hasher) HashElements(elements []Felt) Word {
	buf := make([]byte, 0, len(elements)*8)
	var tmp [8]byte
	for _, e := range elements {
		binary.LittleEndian.PutUint64(tmp[:], uint64(e))
		buf = append(buf, tmp[:]...)
	}
	return hashSlice(buf)
}

func hashSlice(b []byte) Word {
	h := sha3.New256()
	_, _ = h.Write(b)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return WordFromBytes(out)
}
