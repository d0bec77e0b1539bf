package chathub

import (
	"hash/fnv"
	"sync"
)

const sequencerStripes = 64

// roomSequencer serialises persist-then-broadcast per interview so that
// broadcast order equals commit order. Rooms share a fixed set of stripes;
// a goroutine never holds more than one stripe at a time.
type roomSequencer struct {
	stripes [sequencerStripes]sync.Mutex
}

func (s *roomSequencer) lock(interviewID string) (unlock func()) {
	h := fnv.New32a()
	h.Write([]byte(interviewID))
	m := &s.stripes[h.Sum32()%sequencerStripes]
	m.Lock()
	return m.Unlock
}
