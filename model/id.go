package model

import (
	"sync"
	"time"
)

var (
	idMu   sync.Mutex
	lastID int64
)

// GenerateID returns a 64-bit identifier derived from a monotone wall clock
// at nanosecond granularity, matching the original common.generate_id().
// Unlike the Python original (a bare int(time.time() * 1e9) with an
// acknowledged collision risk), this guards against two calls landing on
// the same nanosecond by bumping strictly past the last value handed out.
func GenerateID() int64 {
	idMu.Lock()
	defer idMu.Unlock()

	id := time.Now().UnixNano()
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id
	return id
}
