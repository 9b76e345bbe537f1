package study

import "time"

// Snapshot is the full participant-visit table of one project at export
// time. It is read-only: the resolver layers its pending writes on top of it
// instead of mutating rows.
type Snapshot struct {
	rows     []Row
	byRecord map[string][]*Row
	order    []string
}

// NewSnapshot indexes the exported rows by record id, preserving first-seen
// record order.
func NewSnapshot(rows []Row) *Snapshot {
	s := &Snapshot{
		rows:     rows,
		byRecord: make(map[string][]*Row),
	}
	for i := range s.rows {
		r := &s.rows[i]
		if _, seen := s.byRecord[r.RecordID]; !seen {
			s.order = append(s.order, r.RecordID)
		}
		s.byRecord[r.RecordID] = append(s.byRecord[r.RecordID], r)
	}
	return s
}

// FromRecords parses flat export records into a Snapshot.
func FromRecords(recs []map[string]string) *Snapshot {
	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, ParseRow(rec))
	}
	return NewSnapshot(rows)
}

// RecordIDs returns every participant id in the snapshot, in export order.
func (s *Snapshot) RecordIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Rows returns every row of one participant.
func (s *Snapshot) Rows(recordID string) []*Row {
	return s.byRecord[recordID]
}

// EventRows returns the rows of one participant at one event. Repeating
// instruments produce several rows per event.
func (s *Snapshot) EventRows(recordID, event string) []*Row {
	var out []*Row
	for _, r := range s.byRecord[recordID] {
		if r.Event == event {
			out = append(out, r)
		}
	}
	return out
}

// RecordsWithEvent returns the ids of every participant having at least one
// row at the given event.
func (s *Snapshot) RecordsWithEvent(event string) IDSet {
	out := make(IDSet)
	for id, rows := range s.byRecord {
		for _, r := range rows {
			if r.Event == event {
				out.Add(id)
				break
			}
		}
	}
	return out
}

// LastDate returns the most recent non-null value of one date field across
// all rows of a participant.
func (s *Snapshot) LastDate(recordID string, field func(*Row) *time.Time) (time.Time, bool) {
	var last time.Time
	found := false
	for _, r := range s.byRecord[recordID] {
		d := field(r)
		if d == nil {
			continue
		}
		if !found || d.After(last) {
			last = *d
			found = true
		}
	}
	return last, found
}

// LastDateAcross returns the most recent non-null value across several date
// fields of a participant, skipping rows at excluded events, together with
// the event name of the row that held it.
func (s *Snapshot) LastDateAcross(recordID string, fields []func(*Row) *time.Time, excludedEvents IDSet) (time.Time, string, bool) {
	var last time.Time
	var event string
	found := false
	for _, r := range s.byRecord[recordID] {
		if excludedEvents.Has(r.Event) {
			continue
		}
		for _, field := range fields {
			d := field(r)
			if d == nil {
				continue
			}
			if !found || d.After(last) {
				last = *d
				event = r.Event
				found = true
			}
		}
	}
	return last, event, found
}

// DOB returns the participant's date of birth, taken as the last non-null
// child_dob across her rows.
func (s *Snapshot) DOB(recordID string) (time.Time, bool) {
	return s.LastDate(recordID, func(r *Row) *time.Time { return r.ChildDOB })
}

// Status returns the raw follow-up status text recorded at the status event,
// and whether the participant has a row there at all.
func (s *Snapshot) Status(recordID, statusEvent string) (string, bool) {
	for _, r := range s.byRecord[recordID] {
		if r.Event == statusEvent {
			return r.FollowUpStatus, true
		}
	}
	return "", false
}

// Statuses returns the follow-up status text of every participant with a row
// at the status event.
func (s *Snapshot) Statuses(statusEvent string) map[string]string {
	out := make(map[string]string)
	for id, rows := range s.byRecord {
		for _, r := range rows {
			if r.Event == statusEvent {
				out[id] = r.FollowUpStatus
				break
			}
		}
	}
	return out
}

// Community returns the participant's community code as recorded at any of
// her rows (the field lives on the recruitment event).
func (s *Snapshot) Community(recordID string) string {
	return s.FieldValue(recordID, func(r *Row) string { return r.Community })
}

// FieldValue returns the first non-empty value of a string field across the
// participant's rows.
func (s *Snapshot) FieldValue(recordID string, field func(*Row) string) string {
	for _, r := range s.byRecord[recordID] {
		if v := field(r); v != "" {
			return v
		}
	}
	return ""
}

// MaxInt returns the largest non-null value of a categorical field across
// the participant's rows at one event. REDCap repeating instruments spread
// one logical answer over several rows, so aggregation by max mirrors how
// the field workers record contact attempts.
func (s *Snapshot) MaxInt(recordID, event string, field func(*Row) *int) (int, bool) {
	max, found := 0, false
	for _, r := range s.byRecord[recordID] {
		if r.Event != event {
			continue
		}
		v := field(r)
		if v == nil {
			continue
		}
		if !found || *v > max {
			max = *v
			found = true
		}
	}
	return max, found
}
