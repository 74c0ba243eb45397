package table

import "strings"

const keySeparator = "\x1f"

// Key is the tuple of key-column values identifying a variant.
type Key struct {
	Values []string
	id     string
}

func NewKey(values ...string) Key {
	v := make([]string, len(values))
	copy(v, values)
	return Key{Values: v, id: strings.Join(v, keySeparator)}
}

// Id is the exact-match identity of the key, used for indexing.
func (k Key) Id() string {
	return k.id
}

// String renders the key the way variants are usually written, e.g. 1:100:A:G.
func (k Key) String() string {
	return strings.Join(k.Values, ":")
}

func (k Key) Equal(o Key) bool {
	return k.id == o.id
}
