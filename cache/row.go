package cache

// Row is one LabelSet bound to a Cache. The fingerprint is computed once at
// bind time; Value and Read may then be called arbitrarily often from any
// goroutine.
type Row struct {
	c      *Cache
	labels LabelSet
	key    string
}

// Bind returns one Row per LabelSet, in argument order.
// Each LabelSet is copied, so later mutation by the caller has no effect.
func (c *Cache) Bind(sets ...LabelSet) []Row {
	rows := make([]Row, 0, len(sets))
	for _, ls := range sets {
		ls = ls.Clone()
		rows = append(rows, Row{c: c, labels: ls, key: ls.Fingerprint()})
	}
	return rows
}

// Key returns the fingerprint the row reads from.
func (r Row) Key() string { return r.key }

// Labels returns a copy of the row's labels.
func (r Row) Labels() LabelSet { return r.labels.Clone() }

// Read returns the row's current value, propagating a refresh error.
func (r Row) Read() (float64, error) { return r.c.Value(r.key) }

// Value is the row's zero-argument accessor. A refresh error is logged
// and the stored value (0 if absent) is returned.
func (r Row) Value() float64 {
	v, err := r.c.Value(r.key)
	if err != nil {
		r.c.log.Error("row read failed", Fields{"cache": r.c.name, "row": r.key, "error": err})
	}
	return v
}
