package crypto

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/holiman/uint256"
)

// Word is four field elements: the kernel's universal commitment digest.
type Word [4]Felt

// Zero is the word used for "no commitment"/absent markers (e.g. a new
// account's initial_commitment, an unspent nullifier-tree leaf).
var Zero = Word{}

func (w Word) IsZero() bool {
	return w == Zero
}

// Bytes renders w as 32 bytes, little-endian per element, matching the
// byte-cursor discipline the teacher repo uses for all wire fields.
func (w Word) Bytes() [32]byte {
	var out [32]byte
	for i, f := range w {
		binary.LittleEndian.PutUint64(out[i*8:(i+1)*8], uint64(f))
	}
	return out
}

func WordFromBytes(b [32]byte) Word {
	var w Word
	for i := range w {
		w[i] = Felt(binary.LittleEndian.Uint64(b[i*8 : (i+1)*8]))
	}
	return w
}

// AsUint256 treats the word as a big-endian 256-bit unsigned integer, the
// way go-ethereum/erigon treat a 256-bit EVM word. TrailingZeroBits uses it
// for its all-zero test; the account-id suffix checks work on plain uint64.
func (w Word) AsUint256() *uint256.Int {
	b := w.Bytes()
	// Bytes() is little-endian per field; uint256.SetBytes wants big-endian,
	// so reverse once here rather than changing the wire-facing Bytes layout.
	var rev [32]byte
	for i := range b {
		rev[i] = b[31-i]
	}
	return new(uint256.Int).SetBytes(rev[:])
}

// TrailingZeroBits returns the number of trailing zero bits in w, read as a
// big-endian integer, used to validate the account-id seed grind (spec.md
// sec.3: "seed grind did not produce the required trailing-zero count").
func (w Word) TrailingZeroBits() int {
	if w.AsUint256().IsZero() {
		return 256
	}
	b := w.Bytes()
	// Bytes() is little-endian per field (see above); the big-endian integer's
	// least-significant byte is therefore b[0].
	count := 0
	for i := 0; i < len(b); i++ {
		if b[i] == 0 {
			count += 8
			continue
		}
		count += bits.TrailingZeros8(b[i])
		break
	}
	return count
}

func (w Word) String() string {
	return fmt.Sprintf("%x", w.Bytes())
}
