package reconcile

// Entry is a single key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value string
}

// Mapping is a string map that remembers insertion order.
//
// Setting an existing key replaces its value but keeps the position it was
// first inserted at.
type Mapping struct {
	index   map[string]int
	entries []Entry
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{index: make(map[string]int)}
}

// Set stores value under key.
func (m *Mapping) Set(key, value string) {
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = value
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (string, bool) {
	i, ok := m.index[key]
	if !ok {
		return "", false
	}
	return m.entries[i].Value, true
}

// Len returns the number of distinct keys.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Entries returns the pairs in insertion order. The slice must not be
// modified.
func (m *Mapping) Entries() []Entry {
	return m.entries
}
