package dispatch

import (
	"sync"
	"time"
)

// RecordSet is the dedup set over (token, task) pairs. TryAcquire is an
// atomic insert-if-absent, which is what guarantees at-most-one dispatch
// under concurrent matches of overlapping messages. Records expire after
// the retention window; an expired pair dispatches again as a fresh
// opportunity.
type RecordSet struct {
	mu     sync.Mutex
	expiry map[recordKey]int64 // expiry deadline (ms)
	window time.Duration
	now    func() int64
}

type recordKey struct {
	token  string
	taskID string
}

// NewRecordSet creates a RecordSet with the given retention window.
func NewRecordSet(window time.Duration) *RecordSet {
	return newRecordSetWithClock(window, func() int64 { return time.Now().UnixMilli() })
}

func newRecordSetWithClock(window time.Duration, now func() int64) *RecordSet {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RecordSet{
		expiry: make(map[recordKey]int64),
		window: window,
		now:    now,
	}
}

// TryAcquire records (token, taskID) if no live record exists and reports
// whether the caller won the slot. Exactly one caller wins per pair per
// window.
func (s *RecordSet) TryAcquire(token, taskID string) bool {
	key := recordKey{token: token, taskID: taskID}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, ok := s.expiry[key]; ok && deadline > now {
		return false
	}
	s.expiry[key] = now + s.window.Milliseconds()
	return true
}

// Release drops the record for (token, taskID). Unused by the dispatcher
// on gateway failure, by design: a failed delivery must not re-open the
// slot and risk a double buy.
func (s *RecordSet) Release(token, taskID string) {
	s.mu.Lock()
	delete(s.expiry, recordKey{token: token, taskID: taskID})
	s.mu.Unlock()
}

// Sweep removes expired records and returns the number of live ones left.
func (s *RecordSet) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, deadline := range s.expiry {
		if deadline <= now {
			delete(s.expiry, key)
		}
	}
	return len(s.expiry)
}

// Len returns the number of records, live or expired-but-unswept.
func (s *RecordSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiry)
}
