// Package wordcount reads text files in chunks and tallies every word in a
// remote wordtally store.
//
// Each chunk of a file is read by its own goroutine over its own server
// connection. Words are found with the tokenizer package, so a word that
// straddles a chunk boundary is counted once, by the chunk it starts in.
// For every word the reader performs Increment (GET, add one, SET). Per
// chunk byte and word totals are added to shared atomic counters when the
// chunk completes and reported as a TotalRead for the file.
//
// Example usage:
//
//	r := wordcount.NewReader(wordcount.DialTCP("127.0.0.1:6379", 5*time.Second),
//		wordcount.WithChunks(4))
//	total, err := r.ReadFile(ctx, "book.txt")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("read %v from book.txt\n", total)
package wordcount

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/cachemir/wordtally/internal/logger"
	"github.com/cachemir/wordtally/pkg/tokenizer"
)

// Conn is one connection to the store, owned by a single chunk reader.
type Conn interface {
	KV
	Close() error
}

// Dialer opens a new Conn.
type Dialer func(ctx context.Context) (Conn, error)

// TotalRead is the aggregate of all chunk readers of one file.
type TotalRead struct {
	Bytes int64
	Words int64
}

func (t TotalRead) String() string {
	return fmt.Sprintf("TotalRead { bytes: %d, words: %d }", t.Bytes, t.Words)
}

// Chunk is the byte range assigned to one chunk reader. MaxSize is a
// nominal size: the reader finishes the word it is in before stopping.
type Chunk struct {
	Path    string
	Offset  int64
	MaxSize int64
}

// Plan splits a file of size bytes into chunks. A positive maxChunk fixes
// the chunk size; otherwise the file is divided into n chunks of equal
// size. n <= 1 yields one chunk that reads the whole file.
func Plan(path string, size int64, n int, maxChunk int64) []Chunk {
	if maxChunk <= 0 {
		if n <= 1 || size <= 0 {
			return []Chunk{{Path: path, Offset: 0, MaxSize: tokenizer.Unbounded}}
		}
		maxChunk = (size + int64(n) - 1) / int64(n)
	}

	var chunks []Chunk
	for offset := int64(0); offset < size || offset == 0; offset += maxChunk {
		chunks = append(chunks, Chunk{Path: path, Offset: offset, MaxSize: maxChunk})
	}
	return chunks
}

// counters accumulate the contributions of every chunk reader of a file.
type counters struct {
	bytes atomic.Int64
	words atomic.Int64
}

func (c *counters) total() TotalRead {
	return TotalRead{Bytes: c.bytes.Load(), Words: c.words.Load()}
}

// Reader reads files and tallies their words.
type Reader struct {
	dial         Dialer
	logger       *log.Logger
	chunks       int
	maxChunkSize int64
}

// Option configures a Reader.
type Option func(*Reader)

// WithChunks sets the number of chunk readers per file.
func WithChunks(n int) Option {
	return func(r *Reader) { r.chunks = n }
}

// WithMaxChunkSize fixes the nominal chunk size in bytes.
func WithMaxChunkSize(size int64) Option {
	return func(r *Reader) { r.maxChunkSize = size }
}

// WithLogger sets the reader logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// NewReader creates a Reader that opens connections with dial.
func NewReader(dial Dialer, opts ...Option) *Reader {
	r := &Reader{dial: dial, chunks: 1}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.New("client")
	}
	return r
}

// ReadFile reads path with one goroutine per planned chunk and waits for
// all of them. If any chunk fails, the error reports every failed chunk
// and the returned TotalRead holds only the chunks that completed.
func (r *Reader) ReadFile(ctx context.Context, path string) (TotalRead, error) {
	info, err := os.Stat(path)
	if err != nil {
		return TotalRead{}, fmt.Errorf("stat %s: %w", path, err)
	}

	chunks := Plan(path, info.Size(), r.chunks, r.maxChunkSize)
	r.logger.Debug("reading file", "path", path, "size", info.Size(), "chunks", len(chunks))

	var (
		totals counters
		wg     sync.WaitGroup
		errs   = make([]error, len(chunks))
	)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = r.readChunk(ctx, chunk, &totals)
		}()
	}
	wg.Wait()

	return totals.total(), errors.Join(errs...)
}

// readChunk reads one chunk over its own connection and, on success, adds
// its byte and word counts to totals.
func (r *Reader) readChunk(ctx context.Context, chunk Chunk, totals *counters) error {
	f, err := os.Open(chunk.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", chunk.Path, err)
	}
	defer f.Close()

	if _, err := f.Seek(chunk.Offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s to %d: %w", chunk.Path, chunk.Offset, err)
	}

	conn, err := r.dial(ctx)
	if err != nil {
		return fmt.Errorf("chunk %s@%d: %w", chunk.Path, chunk.Offset, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			r.logger.Debug("error closing connection", "err", err)
		}
	}()

	sc := tokenizer.NewScanner(bufio.NewReader(f), chunk.Offset, chunk.MaxSize)
	for sc.Scan() {
		word := sc.Word()
		count, err := Increment(conn, word)
		if err != nil {
			return fmt.Errorf("chunk %s@%d: %w", chunk.Path, chunk.Offset, err)
		}
		r.logger.Debug("saw word",
			"byte", chunk.Offset+sc.Bytes()-1,
			"word", word,
			"count", count,
			"total", sc.Words())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s at %d: %w", chunk.Path, chunk.Offset, err)
	}

	totals.bytes.Add(sc.Bytes())
	totals.words.Add(sc.Words())
	return nil
}
