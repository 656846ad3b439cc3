package mapping

import (
	"errors"
	"fmt"
	"sort"

	"iotsync/internal/domain/record"
)

var (
	ErrUnmappedTable  = errors.New("table has no remote mapping")
	ErrDuplicateTable = errors.New("table mapped more than once")
	ErrInvalidMapping = errors.New("invalid table mapping")
)

// Kind selects the remote backend a table lives in.
type Kind int

const (
	// FlatKeyed stores each record at <locator>/<key> in a hierarchical key store.
	FlatKeyed Kind = iota + 1
	// DocumentCollection stores each record as a document in a named collection.
	DocumentCollection
)

func (k Kind) String() string {
	switch k {
	case FlatKeyed:
		return "flat"
	case DocumentCollection:
		return "document"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the config spellings of a backend kind, including the
// historical "rtdb"/"firestore" names.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "flat", "flat-keyed-store", "rtdb":
		return FlatKeyed, nil
	case "document", "document-collection", "firestore":
		return DocumentCollection, nil
	}
	return 0, fmt.Errorf("%w: unknown backend kind %q", ErrInvalidMapping, s)
}

// Backend is the resolved remote location of a table.
type Backend struct {
	Kind    Kind
	Locator string
}

func Flat(path string) Backend {
	return Backend{Kind: FlatKeyed, Locator: path}
}

func Collection(name string) Backend {
	return Backend{Kind: DocumentCollection, Locator: name}
}

// Mapping binds a local table to its remote backend and identifier field.
type Mapping struct {
	Table   string
	Backend Backend
	IDField string
}

// Identity returns the field and value used to address rec in the local store.
// The configured identifier field wins; "id" is the fallback.
func (m Mapping) Identity(rec record.Record) (string, string, bool) {
	for _, field := range []string{m.IDField, record.FieldID} {
		if field == "" {
			continue
		}
		if v := rec.Key(field); v != "" {
			return field, v, true
		}
	}
	return "", "", false
}

// Match builds the local-store filter addressing rec.
func (m Mapping) Match(rec record.Record) (record.Match, bool) {
	field, value, ok := m.Identity(rec)
	if !ok {
		return nil, false
	}
	return record.Match{field: value}, true
}

func (m Mapping) validate() error {
	if m.Table == "" {
		return fmt.Errorf("%w: empty table name", ErrInvalidMapping)
	}
	if m.Backend.Locator == "" {
		return fmt.Errorf("%w: table %s has no locator", ErrInvalidMapping, m.Table)
	}
	if m.Backend.Kind != FlatKeyed && m.Backend.Kind != DocumentCollection {
		return fmt.Errorf("%w: table %s has %s", ErrInvalidMapping, m.Table, m.Backend.Kind)
	}
	return nil
}

// Table is the immutable set of synchronized tables.
type Table struct {
	entries map[string]Mapping
	names   []string
}

// New validates the mappings and freezes them. Every table must appear once.
func New(mappings ...Mapping) (*Table, error) {
	t := &Table{entries: make(map[string]Mapping, len(mappings))}
	for _, m := range mappings {
		if m.IDField == "" {
			m.IDField = record.FieldID
		}
		if err := m.validate(); err != nil {
			return nil, err
		}
		if _, ok := t.entries[m.Table]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, m.Table)
		}
		t.entries[m.Table] = m
		t.names = append(t.names, m.Table)
	}
	sort.Strings(t.names)
	return t, nil
}

// MustNew is New for compiled-in tables.
func MustNew(mappings ...Mapping) *Table {
	t, err := New(mappings...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Lookup(table string) (Mapping, error) {
	m, ok := t.entries[table]
	if !ok {
		return Mapping{}, fmt.Errorf("%w: %s", ErrUnmappedTable, table)
	}
	return m, nil
}

// Names returns the table names in sorted order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

func (t *Table) Len() int {
	return len(t.names)
}
