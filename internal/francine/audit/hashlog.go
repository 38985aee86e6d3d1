// Package audit keeps a tamper-evident record of interactions. Each line is
// a JSON entry whose hash covers the canonical payload and the previous
// entry's hash, signed with Ed25519.
package audit

import (
	"bufio"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"os"
	"sync"

	"github.com/anand-gl/jsoncanonicalizer"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry is one line of the log.
type Entry struct {
	Payload   map[string]any `json:"payload"`
	PrevHash  string         `json:"prevHash"`
	Hash      string         `json:"hash"`
	Signature string         `json:"signature"`
}

type hashInput struct {
	Payload  map[string]any `json:"payload"`
	PrevHash string         `json:"prevHash"`
}

type signInput struct {
	Payload  map[string]any `json:"payload"`
	PrevHash string         `json:"prevHash"`
	Hash     string         `json:"hash"`
}

func canonical(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsoncanonicalizer.Transform(b)
}

func entryHash(payload map[string]any, prev string) (string, error) {
	data, err := canonical(hashInput{Payload: payload, PrevHash: prev})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Writer appends signed entries, buffering up to flushEvery of them.
type Writer struct {
	mu         sync.Mutex
	file       *os.File
	path       string
	flushEvery int
	buffer     []Entry
	prevHash   string
	key        ed25519.PrivateKey
	closed     bool
}

// OpenWriter opens path for appending. An existing log is scanned so new
// entries continue its chain.
func OpenWriter(path string, flushEvery int, key ed25519.PrivateKey) (*Writer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKey.Msg("signing key has the wrong size")
	}
	if flushEvery < 1 {
		flushEvery = 1
	}
	prev, err := lastHash(path)
	if err != nil {
		return nil, ErrAuditError.MsgErr("unable to read existing log", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, ErrAuditError.MsgErr("unable to open log", err)
	}
	return &Writer{
		file:       f,
		path:       path,
		flushEvery: flushEvery,
		buffer:     make([]Entry, 0, flushEvery),
		prevHash:   prev,
		key:        key,
	}, nil
}

func lastHash(path string) (string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()
	sc := newScanner(f)
	last := ""
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return "", err
		}
		last = e.Hash
	}
	return last, sc.Err()
}

func newScanner(f *os.File) *bufio.Scanner {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return sc
}

func (w *Writer) Path() string { return w.path }

// Append chains, signs and buffers payload.
func (w *Writer) Append(payload map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	cloned := make(map[string]any, len(payload))
	for k, v := range payload {
		cloned[k] = v
	}
	hash, err := entryHash(cloned, w.prevHash)
	if err != nil {
		return ErrAuditError.MsgErr("unable to hash entry", err)
	}
	signData, err := canonical(signInput{Payload: cloned, PrevHash: w.prevHash, Hash: hash})
	if err != nil {
		return ErrAuditError.MsgErr("unable to encode signature input", err)
	}
	entry := Entry{
		Payload:   cloned,
		PrevHash:  w.prevHash,
		Hash:      hash,
		Signature: base64.StdEncoding.EncodeToString(ed25519.Sign(w.key, signData)),
	}
	w.prevHash = hash
	w.buffer = append(w.buffer, entry)
	if len(w.buffer) >= w.flushEvery {
		return w.flushLocked()
	}
	return nil
}

func (w *Writer) flushLocked() error {
	for _, e := range w.buffer {
		b, err := json.Marshal(e)
		if err != nil {
			return ErrAuditError.MsgErr("unable to encode entry", err)
		}
		if _, err := w.file.Write(append(b, '\n')); err != nil {
			return ErrAuditError.MsgErr("unable to write entry", err)
		}
	}
	w.buffer = w.buffer[:0]
	return nil
}

func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.flushLocked()
}

// Close flushes buffered entries and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.flushLocked(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
