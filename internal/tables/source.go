// Package tables flattens per-state county lists into CSV tables.
package tables

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SourceNames are the county-list file names looked up in a state directory, in order.
var SourceNames = []string{"counties.yaml", "counties.yml", "counties.json"}

// ListKey is the mapping key that may wrap the record sequence.
const ListKey = "counties"

// Record is one county row. Keys keeps the source key order.
type Record struct {
	Keys   []string
	Values map[string]string
}

// Get returns the value for key, or "" when the record lacks it.
func (r Record) Get(key string) string {
	return r.Values[key]
}

// ErrNoSource is returned by FindSource when a state directory has no county list.
var ErrNoSource = errors.New("tables: no county list source")

// FindSource returns the first existing county-list file in dir.
func FindSource(dir string) (string, error) {
	for _, name := range SourceNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", eris.Wrapf(err, "tables: stat %s", path)
		}
	}
	return "", ErrNoSource
}

// LoadSource reads a county list. A .json file is always decoded as JSON;
// anything else goes through ParseRecords.
func LoadSource(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tables: read %s", path)
	}
	parse := ParseRecords
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parse = ParseJSONRecords
	}
	records, err := parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "tables: parse %s", filepath.Base(path))
	}
	return records, nil
}

// ParseRecords decodes either a top-level sequence of mappings or a mapping
// with a "counties" sequence. Every record value must be a scalar; null
// becomes an empty string, and a null "counties" is an empty list. Input
// that is valid JSON is decoded as JSON, since some JSON escapes are not
// valid YAML.
func ParseRecords(data []byte) ([]Record, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 &&
		(trimmed[0] == '[' || trimmed[0] == '{') && json.Valid(trimmed) {
		return ParseJSONRecords(data)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "decode")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, eris.New("empty document")
	}

	list, err := recordList(resolve(doc.Content[0]))
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(list.Content))
	for i, n := range list.Content {
		rec, err := parseRecord(resolve(n))
		if err != nil {
			return nil, eris.Wrapf(err, "record %d (line %d)", i+1, n.Line)
		}
		records = append(records, rec)
	}
	return records, nil
}

func recordList(root *yaml.Node) (*yaml.Node, error) {
	switch root.Kind {
	case yaml.SequenceNode:
		return root, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value != ListKey {
				continue
			}
			v := resolve(root.Content[i+1])
			if v.Kind == yaml.ScalarNode && v.Tag == "!!null" {
				return &yaml.Node{Kind: yaml.SequenceNode}, nil
			}
			if v.Kind != yaml.SequenceNode {
				return nil, eris.Errorf("%q is not a list (line %d)", ListKey, v.Line)
			}
			return v, nil
		}
		return nil, eris.Errorf("mapping has no %q key", ListKey)
	default:
		return nil, eris.Errorf("expected a list of records (line %d)", root.Line)
	}
}

func parseRecord(n *yaml.Node) (Record, error) {
	if n.Kind != yaml.MappingNode {
		return Record{}, eris.New("not a mapping")
	}
	rec := Record{
		Keys:   make([]string, 0, len(n.Content)/2),
		Values: make(map[string]string, len(n.Content)/2),
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := resolve(n.Content[i]), resolve(n.Content[i+1])
		if k.Kind != yaml.ScalarNode {
			return Record{}, eris.Errorf("non-scalar key (line %d)", k.Line)
		}
		if _, dup := rec.Values[k.Value]; dup {
			return Record{}, eris.Errorf("duplicate key %q (line %d)", k.Value, k.Line)
		}
		if v.Kind != yaml.ScalarNode {
			return Record{}, eris.Errorf("value of %q is not a scalar (line %d)", k.Value, v.Line)
		}
		val := v.Value
		if v.Tag == "!!null" {
			val = ""
		}
		rec.Keys = append(rec.Keys, k.Value)
		rec.Values[k.Value] = val
	}
	return rec, nil
}

// ParseJSONRecords is ParseRecords for JSON input. It walks the token stream
// so object key order and the literal text of numbers survive.
func ParseJSONRecords(data []byte) ([]Record, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "decode")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	ok, err := jsonRecordList(dec)
	if err != nil || !ok {
		return nil, err
	}

	var records []Record
	for i := 1; dec.More(); i++ {
		rec, err := jsonRecord(dec)
		if err != nil {
			return nil, eris.Wrapf(err, "record %d", i)
		}
		records = append(records, rec)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// jsonRecordList advances dec to the first element of the record array. It
// returns false when "counties" is null.
func jsonRecordList(dec *json.Decoder) (bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return false, eris.Wrap(err, "decode")
	}
	switch tok {
	case json.Delim('['):
		return true, nil
	case json.Delim('{'):
	default:
		return false, eris.New("expected a list of records")
	}

	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return false, eris.Wrap(err, "decode")
		}
		if key != ListKey {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return false, eris.Wrap(err, "decode")
			}
			continue
		}
		v, err := dec.Token()
		if err != nil {
			return false, eris.Wrap(err, "decode")
		}
		switch v {
		case nil:
			return false, nil
		case json.Delim('['):
			return true, nil
		default:
			return false, eris.Errorf("%q is not a list", ListKey)
		}
	}
	return false, eris.Errorf("mapping has no %q key", ListKey)
}

func jsonRecord(dec *json.Decoder) (Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return Record{}, eris.Wrap(err, "decode")
	}
	if tok != json.Delim('{') {
		return Record{}, eris.New("not a mapping")
	}

	rec := Record{Values: make(map[string]string)}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return Record{}, eris.Wrap(err, "decode")
		}
		key, _ := kt.(string)
		vt, err := dec.Token()
		if err != nil {
			return Record{}, eris.Wrap(err, "decode")
		}

		var val string
		switch v := vt.(type) {
		case nil:
		case string:
			val = v
		case json.Number:
			val = v.String()
		case bool:
			val = strconv.FormatBool(v)
		default:
			return Record{}, eris.Errorf("value of %q is not a scalar", key)
		}
		if _, dup := rec.Values[key]; dup {
			return Record{}, eris.Errorf("duplicate key %q", key)
		}
		rec.Keys = append(rec.Keys, key)
		rec.Values[key] = val
	}
	if _, err := dec.Token(); err != nil {
		return Record{}, eris.Wrap(err, "decode")
	}
	return rec, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
