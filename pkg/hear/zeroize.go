package hear

import "runtime"

// zeroizeWords overwrites a shared-key or nonce slice with zeros and keeps
// the slice alive across the loop so the compiler cannot drop the stores
// (golang/go#33325). Used by the key/nonce store's free operation, which
// resolves Open Question 1: a communicator's secret material no longer
// lingers in memory once the caller has told hear it is gone.
func zeroizeWords(words []uint32) {
	for i := range words {
		words[i] = 0
	}
	runtime.KeepAlive(words)
}

func zeroizeWord(w *uint32) {
	if w == nil {
		return
	}
	*w = 0
	runtime.KeepAlive(w)
}
