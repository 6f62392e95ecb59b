package tokenizer

import (
	"bufio"
	"errors"
	"io"
)

// Scanner yields the words of one chunk in file order. The reader must
// already be positioned at the chunk's offset.
type Scanner struct {
	r    io.ByteReader
	tok  *Tokenizer
	word string
	err  error
	done bool
}

// NewScanner creates a Scanner over r for a chunk starting at offset.
func NewScanner(r io.Reader, offset, limit int64) *Scanner {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Scanner{r: br, tok: New(offset, limit)}
}

// Scan advances to the next word. It returns false at the end of the
// chunk, at end of file or on a read error.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	for {
		if s.tok.Done() {
			s.done = true
			return false
		}

		b, err := s.r.ReadByte()
		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				s.err = err
				return false
			}
			word, ok := s.tok.Flush()
			s.word = word
			return ok
		}

		if word, ok := s.tok.Feed(b); ok {
			s.word = word
			return true
		}
	}
}

// Word returns the word produced by the last successful Scan.
func (s *Scanner) Word() string { return s.word }

// Err returns the first non-EOF read error.
func (s *Scanner) Err() error { return s.err }

// Bytes returns the bytes consumed by the chunk so far.
func (s *Scanner) Bytes() int64 { return s.tok.Bytes() }

// Words returns the words emitted by the chunk so far.
func (s *Scanner) Words() int64 { return s.tok.Words() }

// State returns the tokenizer state.
func (s *Scanner) State() State { return s.tok.State() }
