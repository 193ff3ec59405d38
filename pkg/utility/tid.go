package utility

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TraceID orders the events of a run: milliseconds since traceEpoch, then the node, then a
// per millisecond sequence.
type TraceID = uint64

const (
	nodeBits     = 10
	sequenceBits = 12

	nodeMask     = 1<<nodeBits - 1
	sequenceMask = 1<<sequenceBits - 1
)

var traceEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// TraceInfo is a decoded TraceID.
type TraceInfo struct {
	Time     time.Time
	Node     uint64
	Sequence uint64
}

// TraceGenerator hands out strictly increasing trace ids. It is safe for concurrent use.
type TraceGenerator struct {
	mu       sync.Mutex
	node     uint64
	now      func() time.Time
	lastMs   int64
	sequence uint64
}

func NewTraceGenerator(node uint64) *TraceGenerator {
	return &TraceGenerator{node: node & nodeMask, now: time.Now}
}

var defaultTraces = NewTraceGenerator(uint64(uuid.New().ID()))

// CreateTraceID draws from the process wide generator.
func CreateTraceID() TraceID {
	return defaultTraces.Next()
}

func (g *TraceGenerator) Node() uint64 {
	return g.node
}

func (g *TraceGenerator) Next() TraceID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().Sub(traceEpoch).Milliseconds()
	if ms < g.lastMs {
		// clock went backwards, keep counting on the last millisecond
		ms = g.lastMs
	}
	if ms == g.lastMs {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			ms++
		}
	} else {
		g.sequence = 0
	}
	g.lastMs = ms

	return uint64(ms)<<(nodeBits+sequenceBits) | g.node<<sequenceBits | g.sequence // #nosec G115
}

func ParseTraceID(id TraceID) TraceInfo {
	ms := int64(id >> (nodeBits + sequenceBits)) // #nosec G115
	return TraceInfo{
		Time:     traceEpoch.Add(time.Duration(ms) * time.Millisecond),
		Node:     (id >> sequenceBits) & nodeMask,
		Sequence: id & sequenceMask,
	}
}
