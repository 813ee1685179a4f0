// Package snowflake implements a process-local, clock-ordered 64-bit ID
// allocator: 41 bits of millisecond timestamp offset from a fixed epoch,
// 5 bits of datacenter ID, 5 bits of worker ID, and a 12-bit sequence.
//
// Uniqueness holds as long as no two concurrently running processes share
// the same (datacenter, worker) pair. Assignment strategies live behind the
// [Assigner] interface; see assigner.go.
package snowflake

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	workerIDBits     = 5
	datacenterIDBits = 5
	sequenceBits     = 12

	// MaxWorkerID is the largest valid worker ID (inclusive).
	MaxWorkerID = -1 ^ (-1 << workerIDBits)
	// MaxDatacenterID is the largest valid datacenter ID (inclusive).
	MaxDatacenterID = -1 ^ (-1 << datacenterIDBits)

	workerIDShift      = sequenceBits
	datacenterIDShift  = sequenceBits + workerIDBits
	timestampLeftShift = sequenceBits + workerIDBits + datacenterIDBits

	sequenceMask = -1 ^ (-1 << sequenceBits)

	// epoch is the Twitter epoch in milliseconds (2010-11-04T01:42:54.657Z).
	epoch = 1288834974657
)

// ErrClockRegression is returned when the wall clock moved backward between
// two NextID calls. This is fatal for the generator: continuing to issue IDs
// against a rewound clock risks collisions with IDs already handed out, so
// callers must stop issuing IDs rather than swallow this error.
var ErrClockRegression = errors.New("snowflake: system clock moved backwards")

// Generator allocates snowflake IDs. It is safe for concurrent use; the
// internal mutex guards only local counters and is never held across I/O.
type Generator struct {
	mu           sync.Mutex
	datacenterID int64
	workerID     int64
	sequence     int64
	lastTS       int64
	nowMillis    func() int64
}

// New creates a Generator for the given (datacenter, worker) slot.
// Both IDs must be in [0, 31].
func New(datacenterID, workerID int64) (*Generator, error) {
	if datacenterID < 0 || datacenterID > MaxDatacenterID {
		return nil, fmt.Errorf("snowflake: datacenter id %d out of range [0,%d]", datacenterID, MaxDatacenterID)
	}
	if workerID < 0 || workerID > MaxWorkerID {
		return nil, fmt.Errorf("snowflake: worker id %d out of range [0,%d]", workerID, MaxWorkerID)
	}

	return &Generator{
		datacenterID: datacenterID,
		workerID:     workerID,
		lastTS:       -1,
		nowMillis: func() int64 {
			return time.Now().UnixMilli()
		},
	}, nil
}

// NewFromAssigner creates a Generator with IDs supplied by the given strategy.
func NewFromAssigner(a Assigner) (*Generator, error) {
	datacenterID, workerID, err := a.Assign()
	if err != nil {
		return nil, err
	}
	return New(datacenterID, workerID)
}

// DatacenterID returns the datacenter slot this generator was bound to.
func (g *Generator) DatacenterID() int64 { return g.datacenterID }

// WorkerID returns the worker slot this generator was bound to.
func (g *Generator) WorkerID() int64 { return g.workerID }

// NextID returns a new ID. IDs are strictly increasing per generator under
// normal clock behavior. The only blocking case is sub-millisecond sequence
// exhaustion, where NextID spins until the next millisecond.
//
// A backward clock jump returns [ErrClockRegression] and issues nothing.
func (g *Generator) NextID() (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.nowMillis()
	if ts < g.lastTS {
		return 0, fmt.Errorf("%w: rejecting requests until %d", ErrClockRegression, g.lastTS)
	}

	if ts == g.lastTS {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			ts = g.tilNextMillis(g.lastTS)
		}
	} else {
		g.sequence = 0
	}

	g.lastTS = ts

	id := ((ts - epoch) << timestampLeftShift) |
		(g.datacenterID << datacenterIDShift) |
		(g.workerID << workerIDShift) |
		g.sequence

	return uint64(id), nil
}

func (g *Generator) tilNextMillis(last int64) int64 {
	ts := g.nowMillis()
	for ts <= last {
		ts = g.nowMillis()
	}
	return ts
}
