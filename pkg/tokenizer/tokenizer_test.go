package tokenizer

import (
	"errors"
	"sort"
	"strings"
	"testing"
)

func scanAll(t *testing.T, content string, offset, limit int64) ([]string, *Scanner) {
	t.Helper()
	sc := NewScanner(strings.NewReader(content[offset:]), offset, limit)
	var words []string
	for sc.Scan() {
		words = append(words, sc.Word())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	return words, sc
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		state      State
		class      Class
		trusted    bool
		wantState  State
		wantAction Action
	}{
		{Unsynchronized, Alpha, true, InWord, Append},
		{Unsynchronized, Alpha, false, Unsynchronized, Discard},
		{Unsynchronized, NonAlpha, true, BetweenWords, Skip},
		{Unsynchronized, NonAlpha, false, BetweenWords, Skip},
		{InWord, Alpha, false, InWord, Append},
		{InWord, NonAlpha, false, BetweenWords, Emit},
		{BetweenWords, Alpha, false, InWord, Append},
		{BetweenWords, NonAlpha, false, BetweenWords, Skip},
	}

	for _, tt := range tests {
		gotState, gotAction := Transition(tt.state, tt.class, tt.trusted)
		if gotState != tt.wantState || gotAction != tt.wantAction {
			t.Errorf("Transition(%v, %d, %t) = (%v, %d), want (%v, %d)",
				tt.state, tt.class, tt.trusted, gotState, gotAction, tt.wantState, tt.wantAction)
		}
	}
}

func TestClassify(t *testing.T) {
	for _, b := range []byte("azAZ") {
		if Classify(b) != Alpha {
			t.Errorf("Classify(%q) should be Alpha", b)
		}
	}
	for _, b := range []byte(" \n\t0129,.'-_") {
		if Classify(b) != NonAlpha {
			t.Errorf("Classify(%q) should be NonAlpha", b)
		}
	}
	if Classify(0xe9) != Alpha {
		t.Error("Latin-1 e-acute should be Alpha")
	}
}

func TestSingleChunkFromStart(t *testing.T) {
	words, sc := scanAll(t, "cat dog cat", 0, Unbounded)

	want := []string{"cat", "dog", "cat"}
	if strings.Join(words, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, words)
	}
	if sc.Bytes() != 11 || sc.Words() != 3 {
		t.Errorf("Expected 11 bytes and 3 words, got %d bytes and %d words", sc.Bytes(), sc.Words())
	}
}

func TestLeadingFragmentDiscarded(t *testing.T) {
	words, _ := scanAll(t, "concatenate the dog", 3, Unbounded)

	want := []string{"the", "dog"}
	if strings.Join(words, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, words)
	}
}

func TestUnsynchronizedRunToEOF(t *testing.T) {
	words, sc := scanAll(t, "xxcatdog", 2, Unbounded)
	if len(words) != 0 {
		t.Errorf("Expected no words, got %v", words)
	}
	if sc.State() != Unsynchronized {
		t.Errorf("Expected Unsynchronized, got %v", sc.State())
	}
}

func TestSplitBetweenWords(t *testing.T) {
	content := "cat dog cat"

	first, firstSc := scanAll(t, content, 0, 4)
	second, secondSc := scanAll(t, content, 4, Unbounded)

	if strings.Join(first, ",") != "cat,dog" {
		t.Errorf("First chunk: expected [cat dog], got %v", first)
	}
	if strings.Join(second, ",") != "cat" {
		t.Errorf("Second chunk: expected [cat], got %v", second)
	}
	if firstSc.Words()+secondSc.Words() != 3 {
		t.Errorf("Expected 3 words in total, got %d", firstSc.Words()+secondSc.Words())
	}
}

func TestResynchronizationAtEverySplit(t *testing.T) {
	contents := []string{
		"the quick brown fox jumps over the lazy dog",
		"cat, dog;  bird\nfish cat",
		"  leading spaces and trailing  ",
		"one",
		"a b c d e f",
	}

	for _, content := range contents {
		whole, _ := scanAll(t, content, 0, Unbounded)
		sort.Strings(whole)

		for p := int64(1); p < int64(len(content)); p++ {
			first, _ := scanAll(t, content, 0, p)
			second, _ := scanAll(t, content, p, Unbounded)

			combined := append(append([]string{}, first...), second...)
			sort.Strings(combined)

			if strings.Join(combined, ",") != strings.Join(whole, ",") {
				t.Errorf("%q split at %d: expected %v, got %v + %v", content, p, whole, first, second)
			}
		}
	}
}

func TestNoMidWordTruncation(t *testing.T) {
	content := "alpha beta gamma delta epsilon"

	for limit := int64(0); limit <= int64(len(content))+1; limit++ {
		_, sc := scanAll(t, content, 0, limit)

		if sc.Bytes() <= limit && sc.Bytes() != int64(len(content)) {
			t.Errorf("limit %d: stopped after %d bytes", limit, sc.Bytes())
		}
		if sc.State() == InWord {
			t.Errorf("limit %d: stopped inside a word", limit)
		}
	}
}

func TestFlushOnlyInWord(t *testing.T) {
	tok := New(0, Unbounded)
	for _, b := range []byte("hi ") {
		tok.Feed(b)
	}
	if _, ok := tok.Flush(); ok {
		t.Error("Flush should not emit between words")
	}

	tok = New(0, Unbounded)
	for _, b := range []byte("hi") {
		tok.Feed(b)
	}
	if word, ok := tok.Flush(); !ok || word != "hi" {
		t.Errorf("Expected hi, got %q (ok: %t)", word, ok)
	}
}

type failingReader struct{ n int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n == 0 {
		return 0, errors.New("disk on fire")
	}
	n := copy(p, strings.Repeat("a ", r.n))
	r.n = 0
	return n, nil
}

func TestScannerReadError(t *testing.T) {
	sc := NewScanner(&failingReader{n: 2}, 0, Unbounded)
	count := 0
	for sc.Scan() {
		count++
	}
	if sc.Err() == nil {
		t.Fatal("Expected read error")
	}
	if count != 2 {
		t.Errorf("Expected 2 words before the error, got %d", count)
	}
}
