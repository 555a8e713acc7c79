// Package bitmap provides the fixed-capacity bit vector used to track page
// frames, slab slots and slab objects.
//
// Bit i is set iff unit i is in use. Bits are packed into 64-bit words; a
// word with every bit set is skipped wholesale by the free searches, which is
// what keeps scans over a mostly-allocated address space cheap.
package bitmap

import "math/bits"

// WordBits is the number of tracked units per storage word.
const WordBits = 64

const fullWord = ^uint64(0)

// Bitmap is a packed bit vector with a fixed number of bits.
//
// NOT thread-safe. The owning allocator serializes access.
type Bitmap struct {
	words []uint64
	n     int
}

// New returns a bitmap tracking n units, all initially free.
func New(n int) *Bitmap {
	if n < 0 {
		n = 0
	}
	return &Bitmap{
		words: make([]uint64, WordsFor(n)),
		n:     n,
	}
}

// WordsFor returns the number of words needed to hold n bits.
func WordsFor(n int) int {
	return (n + WordBits - 1) / WordBits
}

// Len returns the number of tracked bits.
func (b *Bitmap) Len() int { return b.n }

// SizeBytes returns the size of the backing storage in bytes.
func (b *Bitmap) SizeBytes() int { return len(b.words) * WordBits / 8 }

func wordIndex(pos int) int { return pos / WordBits }

func bitMask(pos int) uint64 { return 1 << (uint(pos) % WordBits) }

// Get reports whether bit pos is set. Positions outside the bitmap read as
// set so that searches never hand them out.
func (b *Bitmap) Get(pos int) bool {
	if pos < 0 || pos >= b.n {
		return true
	}
	return b.words[wordIndex(pos)]&bitMask(pos) != 0
}

// Set sets bit pos and reports whether it changed.
func (b *Bitmap) Set(pos int) bool {
	if pos < 0 || pos >= b.n {
		return false
	}
	w, m := wordIndex(pos), bitMask(pos)
	if b.words[w]&m != 0 {
		return false
	}
	b.words[w] |= m
	return true
}

// Clear clears bit pos and reports whether it changed.
func (b *Bitmap) Clear(pos int) bool {
	if pos < 0 || pos >= b.n {
		return false
	}
	w, m := wordIndex(pos), bitMask(pos)
	if b.words[w]&m == 0 {
		return false
	}
	b.words[w] &^= m
	return true
}

// SetRange sets bits [pos, pos+n) and returns how many changed.
func (b *Bitmap) SetRange(pos, n int) int {
	changed := 0
	for i := range n {
		if b.Set(pos + i) {
			changed++
		}
	}
	return changed
}

// ClearRange clears bits [pos, pos+n) and returns how many changed.
func (b *Bitmap) ClearRange(pos, n int) int {
	changed := 0
	for i := range n {
		if b.Clear(pos + i) {
			changed++
		}
	}
	return changed
}

// Fill marks every tracked bit as set. Bits past Len stay clear.
func (b *Bitmap) Fill() {
	for i := range b.words {
		b.words[i] = fullWord
	}
	if tail := b.n % WordBits; tail != 0 {
		b.words[len(b.words)-1] = (1 << uint(tail)) - 1
	}
}

// Count returns the number of set bits.
func (b *Bitmap) Count() int {
	total := 0
	for _, w := range b.words {
		total += bits.OnesCount64(w)
	}
	return total
}

// AnySet reports whether any bit in [pos, pos+n) is set.
func (b *Bitmap) AnySet(pos, n int) bool {
	if pos < 0 || pos+n > b.n {
		return true
	}
	return b.nextSet(pos, pos+n) >= 0
}

// AnyClear reports whether any bit in [pos, pos+n) is clear.
func (b *Bitmap) AnyClear(pos, n int) bool {
	for i := range n {
		if !b.Get(pos + i) {
			return true
		}
	}
	return false
}

// FindFree returns the lowest clear bit below limit.
func (b *Bitmap) FindFree(limit int) (int, bool) {
	limit = b.clamp(limit)
	for w := 0; w*WordBits < limit; w++ {
		word := b.words[w]
		if word == fullWord {
			continue
		}
		pos := w*WordBits + bits.TrailingZeros64(^word)
		if pos >= limit {
			return 0, false
		}
		return pos, true
	}
	return 0, false
}

// FindFreeRun returns the start of the lowest run of n clear bits that ends
// at or below limit (first fit).
//
// Full words are skipped in one step. When a candidate run hits a set bit the
// scan resumes after that bit rather than at candidate+1, since no run
// starting in between can succeed.
func (b *Bitmap) FindFreeRun(n, limit int) (int, bool) {
	limit = b.clamp(limit)
	if n <= 0 || n > limit {
		return 0, false
	}

	pos := 0
	for pos+n <= limit {
		w := wordIndex(pos)
		if b.words[w] == fullWord {
			pos = (w + 1) * WordBits
			continue
		}
		if b.words[w]&bitMask(pos) != 0 {
			pos++
			continue
		}
		used := b.nextSet(pos+1, pos+n)
		if used < 0 {
			return pos, true
		}
		pos = used + 1
	}
	return 0, false
}

// nextSet returns the first set bit in [from, to), or -1.
func (b *Bitmap) nextSet(from, to int) int {
	for from < to {
		w := wordIndex(from)
		word := b.words[w] >> (uint(from) % WordBits)
		if word != 0 {
			if p := from + bits.TrailingZeros64(word); p < to {
				return p
			}
			return -1
		}
		from = (w + 1) * WordBits
	}
	return -1
}

// clamp maps a limit outside [0, Len] to Len.
func (b *Bitmap) clamp(limit int) int {
	if limit < 0 || limit > b.n {
		return b.n
	}
	return limit
}
