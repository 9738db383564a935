// Package id provides identifier generation for the server.
//
// Transport peers get prefixed ULIDs so log lines sort by attach time and
// read easily. Input event ack tokens are random, non-zero 32-bit values so
// a client cannot infer event ordering from them.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// PeerID identifies one transport connection in logs.
type PeerID string

// RequestID identifies an HTTP request.
type RequestID string

const (
	PeerPrefix    = "peer"
	RequestPrefix = "req"
)

// ackTokenTag marks every ack token so zero is never produced.
const ackTokenTag = 0x1000000

// Generator generates ULIDs and ack tokens from one entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator backed by crypto/rand.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for testing with deterministic entropy.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// AckToken returns an unpredictable, non-zero token for an outstanding
// input event. Tokens are not monotonic.
func (g *Generator) AckToken() uint32 {
	var b [3]byte
	g.entropyMu.Lock()
	_, err := io.ReadFull(g.entropy, b[:])
	g.entropyMu.Unlock()
	if err != nil {
		// A broken entropy source still yields a valid token.
		return ackTokenTag | uint32(time.Now().UnixNano()&0xffffff)
	}
	return ackTokenTag | uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// NewPeerID generates a new transport peer ID
func NewPeerID() PeerID {
	return PeerID(Default().GenerateWithPrefix(PeerPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id PeerID) String() string    { return string(id) }
func (id RequestID) String() string { return string(id) }
