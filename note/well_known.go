package note

import "rollup.dev/kernel/crypto"

// WellKnownNote identifies one of the kernel's built-in note scripts, the
// way crates/miden-lib/src/note/well_known_note.rs recognizes a handful of
// standard scripts by MAST root so clients can special-case them (e.g. to
// decide whether a note needs no user-supplied witness data to consume).
type WellKnownNote uint8

const (
	WellKnownNone WellKnownNote = iota
	WellKnownP2ID
	WellKnownP2IDR
	WellKnownSwap
)

func (w WellKnownNote) String() string {
	switch w {
	case WellKnownP2ID:
		return "P2ID"
	case WellKnownP2IDR:
		return "P2IDR"
	case WellKnownSwap:
		return "SWAP"
	default:
		return "none"
	}
}

// wellKnownRoots maps each standard script's MAST root to its
// WellKnownNote tag. Real root values are assigned once a MAST compiler
// exists; these are computed deterministically from the script's name so
// the registry and lookup mechanics can be built and tested now.
var wellKnownRoots = func() map[crypto.Word]WellKnownNote {
	h := crypto.Sha3Hasher{}
	root := func(name string) crypto.Word {
		felts := make([]crypto.Felt, len(name))
		for i, c := range name {
			felts[i] = crypto.NewFelt(uint64(c))
		}
		return h.HashElements(felts)
	}
	return map[crypto.Word]WellKnownNote{
		root("P2ID"):  WellKnownP2ID,
		root("P2IDR"): WellKnownP2IDR,
		root("SWAP"):  WellKnownSwap,
	}
}()

// ScriptRootFor returns the canonical MAST root the kernel recognizes for
// the given well-known script.
func ScriptRootFor(w WellKnownNote) (crypto.Word, bool) {
	for root, tag := range wellKnownRoots {
		if tag == w {
			return root, true
		}
	}
	return crypto.Zero, false
}

// Recognize reports whether scriptRoot matches one of the kernel's built-in
// note scripts.
func Recognize(scriptRoot crypto.Word) WellKnownNote {
	if w, ok := wellKnownRoots[scriptRoot]; ok {
		return w
	}
	return WellKnownNone
}
