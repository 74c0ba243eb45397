package table

import "sort"

// Record is a single row of a source table, column name to raw value.
type Record map[string]string

func (r Record) Get(column string) string {
	return r[column]
}

func (r Record) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Clone returns a shallow copy safe to mutate.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Frame is an ordered, string-typed table as produced by an upload function
// and reshaped by a pre-processor.
type Frame struct {
	Columns []string
	Records []Record

	colIndex map[string]int
}

func NewFrame(columns ...string) *Frame {
	f := &Frame{}
	for _, c := range columns {
		f.AddColumn(c)
	}
	return f
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Records)
}

func (f *Frame) HasColumn(column string) bool {
	f.ensureIndex()
	_, ok := f.colIndex[column]
	return ok
}

// AddColumn registers a column at the end of the column order. Adding an
// existing column is a no-op.
func (f *Frame) AddColumn(column string) {
	f.ensureIndex()
	if _, ok := f.colIndex[column]; ok {
		return
	}
	f.colIndex[column] = len(f.Columns)
	f.Columns = append(f.Columns, column)
}

// Append adds a record. Columns the frame has not registered yet are
// appended in sorted order so the column order stays deterministic.
func (f *Frame) Append(r Record) {
	var unseen []string
	for c := range r {
		if !f.HasColumn(c) {
			unseen = append(unseen, c)
		}
	}
	sort.Strings(unseen)
	for _, c := range unseen {
		f.AddColumn(c)
	}
	f.Records = append(f.Records, r)
}

// Rename renames a column in place, carrying its values along.
func (f *Frame) Rename(from, to string) {
	if from == to || !f.HasColumn(from) {
		return
	}
	for i, c := range f.Columns {
		if c == from {
			f.Columns[i] = to
		}
	}
	for _, r := range f.Records {
		if v, ok := r[from]; ok {
			delete(r, from)
			r[to] = v
		}
	}
	f.colIndex = nil
	// a rename onto an existing column collapses the two
	f.Columns = dedupe(f.Columns)
}

// MissingColumns lists the given columns that the frame does not carry.
func (f *Frame) MissingColumns(columns []string) []string {
	var missing []string
	for _, c := range columns {
		if !f.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func (f *Frame) ensureIndex() {
	if f.colIndex != nil {
		return
	}
	f.colIndex = make(map[string]int, len(f.Columns))
	for i, c := range f.Columns {
		f.colIndex[c] = i
	}
}

func dedupe(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := cols[:0]
	for _, c := range cols {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
