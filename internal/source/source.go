// Package source delivers whole-collection snapshots from the backing
// document store. A snapshot fully replaces whatever the consumer held
// for that collection before; there are no deltas to merge.
package source

import "context"

// Store collection names.
const (
	CollectionStudents      = "students"
	CollectionStaff         = "staff"
	CollectionGuests        = "guests"
	CollectionTimeTracking  = "time_tracking"
	CollectionCurrentStatus = "current_status"
	CollectionVIPRecords    = "vip_records"
)

// Collections lists every collection the dashboard watches.
var Collections = []string{
	CollectionStudents,
	CollectionStaff,
	CollectionGuests,
	CollectionTimeTracking,
	CollectionCurrentStatus,
	CollectionVIPRecords,
}

// Snapshot is the full current contents of one collection.
type Snapshot struct {
	Collection string
	Docs       []map[string]any
}

// Source is the abstraction over snapshot backends. Subscribe returns a
// channel closed when ctx ends; each message replaces the prior state of
// its collection.
type Source interface {
	Subscribe(ctx context.Context) (<-chan Snapshot, error)
}

// Static replays a fixed set of snapshots once, then closes the channel.
// Used in dev mode and tests.
type Static struct {
	Snapshots []Snapshot
}

// Subscribe emits each snapshot in order.
func (s *Static) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	out := make(chan Snapshot, len(s.Snapshots))
	go func() {
		defer close(out)
		for _, snap := range s.Snapshots {
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
