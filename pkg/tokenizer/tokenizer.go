// Package tokenizer splits a byte range of a file into words.
//
// A file may be divided into chunks that are read by independent readers.
// A chunk that does not start at byte 0 can begin in the middle of a word
// that belongs to the previous chunk, so every such chunk starts
// Unsynchronized and discards its leading alphabetic run until it sees the
// first non-alphabetic byte. A chunk that starts at offset 0 is trusted
// immediately.
//
// A chunk keeps reading past its nominal size until it is no longer inside
// a word, so the word straddling the boundary is owned by the chunk in
// which it starts, and the next chunk discards it while resynchronizing.
//
// Example usage:
//
//	sc := tokenizer.NewScanner(file, 0, tokenizer.Unbounded)
//	for sc.Scan() {
//		fmt.Println(sc.Word())
//	}
//	if err := sc.Err(); err != nil {
//		log.Fatal(err)
//	}
package tokenizer

import (
	"math"
	"unicode"
	"unicode/utf8"
)

// Unbounded is the chunk size for a reader that consumes the rest of the file.
const Unbounded int64 = math.MaxInt64

// State is the synchronization state of a chunk reader.
type State uint8

const (
	Unsynchronized State = iota // leading bytes may belong to the previous chunk
	InWord                      // accumulating an alphabetic run
	BetweenWords                // synchronized, outside any word
)

func (s State) String() string {
	switch s {
	case Unsynchronized:
		return "Unsynchronized"
	case InWord:
		return "InWord"
	case BetweenWords:
		return "BetweenWords"
	default:
		return "State(?)"
	}
}

// Class is the classification of a single input byte.
type Class uint8

const (
	NonAlpha Class = iota
	Alpha
)

// Classify reports whether b, taken as a Latin-1 code point, is a letter.
func Classify(b byte) Class {
	if unicode.IsLetter(rune(b)) {
		return Alpha
	}
	return NonAlpha
}

// Action tells the accumulator what to do with the byte that caused a transition.
type Action uint8

const (
	Skip    Action = iota // nothing to record
	Discard               // byte belongs to the predecessor chunk
	Append                // add byte to the current word
	Emit                  // the current word is complete
)

// Transition is the state machine of a chunk reader. trusted is true only
// for the very first byte of a chunk starting at offset 0.
func Transition(s State, c Class, trusted bool) (State, Action) {
	switch s {
	case Unsynchronized:
		if c == NonAlpha {
			return BetweenWords, Skip
		}
		if trusted {
			return InWord, Append
		}
		return Unsynchronized, Discard
	case InWord:
		if c == Alpha {
			return InWord, Append
		}
		return BetweenWords, Emit
	default:
		if c == Alpha {
			return InWord, Append
		}
		return BetweenWords, Skip
	}
}

// Tokenizer holds the read state of one chunk: counters, FSM state and the
// word being accumulated. It performs no I/O.
type Tokenizer struct {
	buf    []byte
	offset int64
	limit  int64
	bytes  int64
	words  int64
	state  State
}

// New creates a Tokenizer for a chunk that starts at offset and should stop
// once more than limit bytes have been read.
func New(offset, limit int64) *Tokenizer {
	return &Tokenizer{
		offset: offset,
		limit:  limit,
		state:  Unsynchronized,
	}
}

// Feed consumes one byte. It returns the completed word when b ends one.
func (t *Tokenizer) Feed(b byte) (string, bool) {
	t.bytes++
	trusted := t.offset == 0 && t.bytes == 1

	var action Action
	t.state, action = Transition(t.state, Classify(b), trusted)

	switch action {
	case Append:
		t.buf = utf8.AppendRune(t.buf, rune(b))
	case Emit:
		return t.emit(), true
	}
	return "", false
}

// Flush emits the word in progress at end of input, if any.
func (t *Tokenizer) Flush() (string, bool) {
	if t.state != InWord || len(t.buf) == 0 {
		return "", false
	}
	t.state = BetweenWords
	return t.emit(), true
}

func (t *Tokenizer) emit() string {
	word := string(t.buf)
	t.buf = t.buf[:0]
	t.words++
	return word
}

// Done reports whether the chunk is complete: the size limit has been
// passed and no word is being accumulated.
func (t *Tokenizer) Done() bool {
	return t.bytes > t.limit && t.state != InWord
}

// State returns the current FSM state.
func (t *Tokenizer) State() State { return t.state }

// Bytes returns the number of bytes consumed so far.
func (t *Tokenizer) Bytes() int64 { return t.bytes }

// Words returns the number of words emitted so far.
func (t *Tokenizer) Words() int64 { return t.words }
