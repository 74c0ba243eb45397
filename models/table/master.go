package table

import (
	"fmt"
	"strconv"
)

type ColumnRole string

const (
	RoleNone       ColumnRole = ""
	RoleKey        ColumnRole = "key"
	RoleIndicator  ColumnRole = "indicator"
	RoleAnnotation ColumnRole = "annotation"
	RoleValidation ColumnRole = "validation"
)

// Schema describes the column layout of a master table. It is persisted next
// to the table so later passes can tell indicator columns from annotations.
type Schema struct {
	KeyCols     []string `yaml:"key_cols"`
	Indicators  []string `yaml:"indicators"`
	Annotations []string `yaml:"annotations"`
	Validations []string `yaml:"validations"`
}

// Columns returns the full column order: keys, indicators, annotations,
// validations.
func (s Schema) Columns() []string {
	cols := make([]string, 0, len(s.KeyCols)+len(s.Indicators)+len(s.Annotations)+len(s.Validations))
	cols = append(cols, s.KeyCols...)
	cols = append(cols, s.Indicators...)
	cols = append(cols, s.Annotations...)
	cols = append(cols, s.Validations...)
	return cols
}

func (s Schema) Role(column string) ColumnRole {
	for _, group := range []struct {
		cols []string
		role ColumnRole
	}{
		{s.KeyCols, RoleKey},
		{s.Indicators, RoleIndicator},
		{s.Annotations, RoleAnnotation},
		{s.Validations, RoleValidation},
	} {
		for _, c := range group.cols {
			if c == column {
				return group.role
			}
		}
	}
	return RoleNone
}

func (s Schema) clone() Schema {
	return Schema{
		KeyCols:     append([]string(nil), s.KeyCols...),
		Indicators:  append([]string(nil), s.Indicators...),
		Annotations: append([]string(nil), s.Annotations...),
		Validations: append([]string(nil), s.Validations...),
	}
}

// Row is one variant of the master table. Cells hold typed values; a column
// without an entry is missing (null).
type Row struct {
	Key   Key
	Cells map[string]interface{}
}

func (r *Row) Get(column string) (interface{}, bool) {
	v, ok := r.Cells[column]
	if ok && v == nil {
		return nil, false
	}
	return v, ok
}

func (r *Row) Set(column string, value interface{}) {
	if value == nil {
		delete(r.Cells, column)
		return
	}
	r.Cells[column] = value
}

// Indicator reports whether the source owning the indicator column reported
// this variant.
func (r *Row) Indicator(column string) bool {
	v, ok := r.Get(column)
	if !ok {
		return false
	}
	return Truthy(v)
}

// Master is the accumulating wide table. Its schema only grows through the
// explicit Add* migrations; rows are only ever appended and the key tuple is
// unique across rows.
type Master struct {
	schema Schema
	rows   []*Row
	index  map[string]int
}

func NewMaster(keyCols []string) *Master {
	return &Master{
		schema: Schema{KeyCols: append([]string(nil), keyCols...)},
		index:  map[string]int{},
	}
}

// NewMasterFromSchema creates an empty table with a previously persisted
// column layout.
func NewMasterFromSchema(s Schema) *Master {
	return &Master{schema: s.clone(), index: map[string]int{}}
}

func (m *Master) Schema() Schema {
	return m.schema.clone()
}

func (m *Master) KeyCols() []string {
	return append([]string(nil), m.schema.KeyCols...)
}

func (m *Master) Columns() []string {
	return m.schema.Columns()
}

func (m *Master) HasColumn(column string) bool {
	return m.schema.Role(column) != RoleNone
}

func (m *Master) Len() int {
	return len(m.rows)
}

func (m *Master) Row(i int) *Row {
	return m.rows[i]
}

// Rows exposes the rows in table order. Callers must not append to it.
func (m *Master) Rows() []*Row {
	return m.rows
}

func (m *Master) Lookup(k Key) (*Row, bool) {
	i, ok := m.index[k.Id()]
	if !ok {
		return nil, false
	}
	return m.rows[i], true
}

// AddIndicator migrates the schema with an indicator column for a source;
// every existing row defaults to false. Returns false when the column already
// exists as an indicator.
func (m *Master) AddIndicator(column string) (bool, error) {
	added, err := m.addColumn(column, RoleIndicator, &m.schema.Indicators)
	if err != nil || !added {
		return added, err
	}
	for _, r := range m.rows {
		r.Cells[column] = false
	}
	return true, nil
}

// AddAnnotation migrates the schema with an annotation column; existing rows
// are left missing.
func (m *Master) AddAnnotation(column string) (bool, error) {
	return m.addColumn(column, RoleAnnotation, &m.schema.Annotations)
}

// AddValidation migrates the schema with a validation result column; existing
// rows are left missing until checked.
func (m *Master) AddValidation(column string) (bool, error) {
	return m.addColumn(column, RoleValidation, &m.schema.Validations)
}

// CheckRole reports whether column could be added with the given role:
// it must be named and either absent or already of that role.
func (s Schema) CheckRole(column string, role ColumnRole) error {
	if column == "" {
		return fmt.Errorf("empty %s column name", role)
	}
	if existing := s.Role(column); existing != RoleNone && existing != role {
		return fmt.Errorf("column %q already exists as a %s column, cannot add it as a %s column", column, existing, role)
	}
	return nil
}

func (m *Master) addColumn(column string, role ColumnRole, group *[]string) (bool, error) {
	if err := m.schema.CheckRole(column, role); err != nil {
		return false, err
	}
	if m.schema.Role(column) == role {
		return false, nil
	}
	*group = append(*group, column)
	return true, nil
}

// Append adds a new variant row with its key cells set and every indicator
// false. Appending a key that already exists is an error.
func (m *Master) Append(k Key) (*Row, error) {
	if len(k.Values) != len(m.schema.KeyCols) {
		return nil, fmt.Errorf("key %s has %d values, table keys on %d columns", k, len(k.Values), len(m.schema.KeyCols))
	}
	if _, exists := m.index[k.Id()]; exists {
		return nil, fmt.Errorf("duplicate key %s", k)
	}
	r := &Row{Key: k, Cells: make(map[string]interface{}, len(m.schema.KeyCols)+len(m.schema.Indicators))}
	for i, c := range m.schema.KeyCols {
		r.Cells[c] = k.Values[i]
	}
	for _, c := range m.schema.Indicators {
		r.Cells[c] = false
	}
	m.index[k.Id()] = len(m.rows)
	m.rows = append(m.rows, r)
	return r, nil
}

// IndexBy groups row positions by the values of a subset of the key columns.
func (m *Master) IndexBy(columns []string) map[string][]int {
	idx := make(map[string][]int, len(m.rows))
	for i, r := range m.rows {
		values := make([]string, len(columns))
		for j, c := range columns {
			v, _ := r.Get(c)
			values[j] = FormatCell(v)
		}
		id := NewKey(values...).Id()
		idx[id] = append(idx[id], i)
	}
	return idx
}

// FormatCell renders a cell value for a delimited file; missing is empty.
func FormatCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Truthy interprets indicator-like values, including those read back from a
// persisted table ("1", "true", "True", "1.0").
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch t {
		case "1", "1.0", "true", "True", "TRUE", "yes":
			return true
		}
	}
	return false
}
