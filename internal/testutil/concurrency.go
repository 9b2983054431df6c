package testutil

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/vk/fakegridgo/internal/registry"
)

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// Its "sleeper" capability sleeps, records when each field ran and returns
// options.id. Fields that use it must set options.id to their own id.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Register registers the "sleeper" capability.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.Register("sleeper", "sleeps, then returns options.id", func(_ *rand.Rand, args registry.Args) (any, error) {
		id, err := args.String("id", "")
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, fmt.Errorf("sleeper requires options.id")
		}

		startTime := time.Now()
		time.Sleep(m.sleepDuration)
		endTime := time.Now()

		m.mu.Lock()
		if rec, ok := m.ExecutionTimes[id]; ok {
			rec.End = endTime
		} else {
			m.ExecutionTimes[id] = &ExecutionRecord{Start: startTime, End: endTime}
		}
		m.mu.Unlock()

		if m.completionChan != nil {
			m.completionChan <- id
		}
		return id, nil
	})
}

// Record returns the execution record of id.
func (m *MockSleeperModule) Record(id string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.ExecutionTimes[id]
	return rec, ok
}
