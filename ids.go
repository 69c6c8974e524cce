package content

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator issues identifiers for new list and keyed items. Generated ids
// must not collide with any id already present in doc.
type IDGenerator interface {
	NextID(doc Document, section string) any
}

// ClockIDs issues int64 ids derived from the wall clock in milliseconds. Ids
// are strictly increasing for the lifetime of the generator and always larger
// than every numeric id found in the document.
type ClockIDs struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClockIDs returns a ClockIDs reading time.Now.
func NewClockIDs() *ClockIDs {
	return &ClockIDs{now: time.Now}
}

// NextID implements IDGenerator.
func (g *ClockIDs) NextID(doc Document, _ string) any {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now
	if g.now != nil {
		now = g.now
	}
	next := now().UnixMilli()
	floor := g.last
	if highest, ok := maxNumericID(doc); ok && highest > floor {
		floor = highest
	}
	if next <= floor {
		if floor == math.MaxInt64 {
			// The numeric id space is exhausted; string ids are valid too.
			return uuid.NewString()
		}
		next = floor + 1
	}
	g.last = next
	return next
}

// UUIDIDs issues random UUID strings.
type UUIDIDs struct{}

// NextID implements IDGenerator.
func (UUIDIDs) NextID(Document, string) any {
	return uuid.NewString()
}

// maxNumericID scans every list and keyed section for the largest numeric id.
func maxNumericID(doc Document) (int64, bool) {
	var (
		highest int64
		found   bool
	)
	consider := func(record any) {
		fields, ok := record.(map[string]any)
		if !ok {
			return
		}
		var id int64
		switch v := fields["id"].(type) {
		case int64:
			id = v
		case float64:
			if v >= math.MaxInt64 {
				id = math.MaxInt64
			} else {
				id = int64(v)
			}
		default:
			return
		}
		if !found || id > highest {
			highest = id
			found = true
		}
	}
	for _, name := range doc.Names() {
		switch value := doc.sections[name].(type) {
		case []any:
			for _, item := range value {
				consider(item)
			}
		case *Keyed:
			for pair := value.Oldest(); pair != nil; pair = pair.Next() {
				consider(pair.Value)
			}
		}
	}
	return highest, found
}

var defaultIDs = NewClockIDs()

func idsOrDefault(ids IDGenerator) IDGenerator {
	if ids == nil {
		return defaultIDs
	}
	return ids
}
