package sampling

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/zeebo/xxh3"
)

// Mode selects how a Source hands out random streams to concurrent field tasks.
type Mode string

const (
	// ModeDerived gives every field its own stream seeded from the base seed
	// and a hash of the field id. Streams never contend, and a field's values
	// depend only on the seed and its id, not on scheduling order.
	ModeDerived Mode = "derived"
	// ModeShared serializes all fields onto a single stream behind a mutex.
	// The draw order, and therefore the output, depends on scheduling.
	ModeShared Mode = "shared"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDerived, ModeShared:
		return Mode(s), nil
	case "":
		return ModeDerived, nil
	default:
		return "", fmt.Errorf("unknown rng mode %q: must be %q or %q", s, ModeDerived, ModeShared)
	}
}

// Source is the explicit random handle threaded through generation.
type Source struct {
	seed   uint64
	mode   Mode
	shared *rand.Rand
}

// NewSource creates a Source for the given base seed.
func NewSource(seed uint64, mode Mode) *Source {
	s := &Source{seed: seed, mode: mode}
	if mode == ModeShared {
		s.shared = rand.New(&lockedSource{src: rand.NewPCG(seed, 0)})
	}
	return s
}

// Seed returns the base seed.
func (s *Source) Seed() uint64 { return s.seed }

// Mode returns the stream mode.
func (s *Source) Mode() Mode { return s.mode }

// For returns the stream a field task must use. In derived mode each call
// returns a fresh generator, so callers request it once per task.
func (s *Source) For(id string) *rand.Rand {
	if s.mode == ModeShared {
		return s.shared
	}
	return rand.New(rand.NewPCG(s.seed, xxh3.HashString(id)))
}

// lockedSource makes a rand.Source safe for concurrent use. rand.Rand keeps
// no state outside its Source, so a Rand over a lockedSource is safe too.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (l *lockedSource) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64()
}
