package track

// KeyFunc extracts the logical-identity key a record is merged on. An
// empty key marks the record as unmergeable and it is dropped.
type KeyFunc[T any] func(T) string

// TimeFunc extracts the comparable timestamp a record competes with.
type TimeFunc[T any] func(T) Instant

// Dedup collapses records sharing a key down to the one with the latest
// timestamp. Records with a missing timestamp compete as epoch 0. On an
// exact timestamp tie the record seen later in input order wins; source
// ordering is not guaranteed stable, so the tie-break is arbitrary but
// deterministic for a fixed input. Output keeps first-occurrence key
// order. Pure function of its input.
func Dedup[T any](records []T, key KeyFunc[T], ts TimeFunc[T]) []T {
	type winner struct {
		record T
		at     Instant
	}
	byKey := make(map[string]*winner, len(records))
	var order []string
	for _, rec := range records {
		k := key(rec)
		if k == "" {
			continue
		}
		at := ts(rec)
		cur, ok := byKey[k]
		if !ok {
			byKey[k] = &winner{record: rec, at: at}
			order = append(order, k)
			continue
		}
		if !at.OrderTime().Before(cur.at.OrderTime()) {
			cur.record = rec
			cur.at = at
		}
	}
	out := make([]T, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k].record)
	}
	return out
}

// PresenceKey is the dedup key for current_status rows: name when set,
// otherwise the user id.
func PresenceKey(p PresenceRecord) string {
	if p.Name != "" {
		return p.Name
	}
	return p.UserID
}

// DedupPresence collapses raw presence rows to at most one per identity,
// latest action winning.
func DedupPresence(records []PresenceRecord) []PresenceRecord {
	return Dedup(records, PresenceKey, func(p PresenceRecord) Instant { return p.LastAction })
}
