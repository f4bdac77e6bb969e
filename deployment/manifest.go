package deployment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ManifestEntry is one deployed contract recorded under its logical name.
type ManifestEntry struct {
	Name   string `json:"name"`
	Result Result `json:"result"`
}

// Manifest maps logical contract names to their deployment results. Entries keep deployment
// order, which is also the key order of the JSON encoding.
type Manifest struct {
	names   []string
	results map[string]Result
}

// NewManifest builds a manifest from entries in deployment order.
func NewManifest(entries ...ManifestEntry) (*Manifest, error) {
	m := &Manifest{results: make(map[string]Result, len(entries))}
	for _, e := range entries {
		if err := m.add(e.Name, e.Result); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Manifest) add(name string, r Result) error {
	if name == "" {
		return errors.New("manifest entry has no name")
	}
	if _, dup := m.results[name]; dup {
		return fmt.Errorf("duplicate manifest entry %s", name)
	}
	m.names = append(m.names, name)
	m.results[name] = r

	return nil
}

// Get returns the result recorded for name.
func (m *Manifest) Get(name string) (Result, bool) {
	r, ok := m.results[name]
	return r, ok
}

// Names returns the logical names in deployment order.
func (m *Manifest) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)

	return out
}

// Entries returns the entries in deployment order.
func (m *Manifest) Entries() []ManifestEntry {
	out := make([]ManifestEntry, 0, len(m.names))
	for _, n := range m.names {
		out = append(out, ManifestEntry{Name: n, Result: m.results[n]})
	}

	return out
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.names)
}

// MarshalJSON encodes the manifest as an object keyed by logical name, in deployment order.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.results[n])
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", n, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a manifest object, keeping the key order of the document.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("manifest must be a JSON object")
	}

	decoded := Manifest{results: map[string]Result{}}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected manifest key %v", tok)
		}

		var r Result
		if err = dec.Decode(&r); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		if err = decoded.add(name, r); err != nil {
			return err
		}
	}

	if _, err = dec.Token(); err != nil {
		return err
	}
	*m = decoded

	return nil
}
