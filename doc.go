// Package wordtally is a distributed word-frequency counter.
//
// One server process holds an in-memory word store. Client processes split
// text files into chunks, find the words in each chunk and increment each
// word's count on the server.
//
// # Architecture Overview
//
//   - Server (internal/server): TCP acceptor, one command processor per connection
//   - Store (pkg/store): mutex-guarded map from word to count bytes
//   - Protocol (pkg/protocol): length-prefixed msgpack frames carrying GET and SET
//   - Client (pkg/client): one connection per chunk reader
//   - Tokenizer (pkg/tokenizer): word boundary state machine with chunk resynchronization
//   - Word counting (pkg/wordcount): chunk planning, remote increment, totals
//   - Configuration (pkg/config): flags, WORDTALLY_* environment, TOML file
//
// # Quick Start
//
// Server:
//
//	./wordtally-server -port 6379
//
// Client:
//
//	./wordtally-client -server 127.0.0.1:6379 -chunks 4 book.txt notes.txt
//
// which prints one line per file:
//
//	read TotalRead { bytes: 11, words: 3 } from notes.txt
//
// # Counting Semantics
//
// A word is a run of alphabetic bytes. A chunk that starts in the middle of
// a file skips its leading alphabetic run, which belongs to the previous
// chunk, and a chunk never stops in the middle of a word. Increments are a
// GET followed by a SET: two readers completing the same word at the same
// moment can lose one increment. The store makes each call atomic, not the
// pair.
//
// Nothing is persisted; counts live as long as the server process.
package wordtally
