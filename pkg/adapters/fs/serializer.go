package fs

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/tally/pkg/core"
)

// wireCounter is the "id_counter" object of a stored document.
type wireCounter struct {
	Counter      *core.RecordID  `json:"counter" yaml:"counter"`
	AvailableIDs []core.RecordID `json:"available_ids" yaml:"available_ids"`
}

func toWireCounter(c core.CounterState) *wireCounter {
	next := c.NextID
	free := c.FreeIDs
	if free == nil {
		free = []core.RecordID{}
	}
	return &wireCounter{Counter: &next, AvailableIDs: free}
}

func (w *wireCounter) counterState() (core.CounterState, error) {
	if w == nil {
		return core.CounterState{}, fmt.Errorf("id_counter is missing")
	}
	if w.Counter == nil {
		return core.CounterState{}, fmt.Errorf("id_counter.counter is missing")
	}
	free := w.AvailableIDs
	if free == nil {
		free = []core.RecordID{}
	}
	return core.CounterState{NextID: *w.Counter, FreeIDs: free}, nil
}

func corrupt(format string, err error) error {
	return &core.Error{Kind: core.ErrCorruptStore, Op: "decode", Detail: format, Err: err}
}

// --- JSON Codec ---

type jsonDocument[R any] struct {
	IDCounter *wireCounter `json:"id_counter"`
	Items     map[string]R `json:"items"`
}

// JSONCodec reads and writes the JSON store format. Item keys are the
// decimal form of the record id.
type JSONCodec[R any] struct {
	// Indent is the per-level indentation; four spaces when empty.
	Indent string
}

// NewJSONCodec creates a JSON codec with the default indentation.
func NewJSONCodec[R any]() *JSONCodec[R] {
	return &JSONCodec[R]{Indent: "    "}
}

func (c *JSONCodec[R]) Name() string { return "json" }

func (c *JSONCodec[R]) Encode(doc *core.Document[R]) ([]byte, error) {
	items := make(map[string]R, len(doc.Records))
	for id, rec := range doc.Records {
		items[strconv.Itoa(int(id))] = rec
	}

	indent := c.Indent
	if indent == "" {
		indent = "    "
	}
	return json.MarshalIndent(jsonDocument[R]{
		IDCounter: toWireCounter(doc.Counter),
		Items:     items,
	}, "", indent)
}

func (c *JSONCodec[R]) Decode(data []byte) (*core.Document[R], error) {
	var payload jsonDocument[R]
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, corrupt("json", err)
	}

	counter, err := payload.IDCounter.counterState()
	if err != nil {
		return nil, corrupt("json", err)
	}
	if payload.Items == nil {
		return nil, corrupt("json", fmt.Errorf("items are missing"))
	}

	doc := &core.Document[R]{Counter: counter, Records: make(map[core.RecordID]R, len(payload.Items))}
	for key, rec := range payload.Items {
		n, err := strconv.Atoi(key)
		if err != nil || strconv.Itoa(n) != key {
			return nil, corrupt("json", fmt.Errorf("item key %q is not a decimal id", key))
		}
		doc.Records[core.RecordID(n)] = rec
	}

	if err := doc.Check(); err != nil {
		return nil, corrupt("json", err)
	}
	return doc, nil
}

// --- YAML Codec ---

type yamlDocument[R any] struct {
	IDCounter *wireCounter        `yaml:"id_counter"`
	Items     map[core.RecordID]R `yaml:"items"`
}

// YAMLCodec reads and writes the YAML rendition of the store format.
type YAMLCodec[R any] struct{}

// NewYAMLCodec creates a YAML codec.
func NewYAMLCodec[R any]() *YAMLCodec[R] {
	return &YAMLCodec[R]{}
}

func (c *YAMLCodec[R]) Name() string { return "yaml" }

func (c *YAMLCodec[R]) Encode(doc *core.Document[R]) ([]byte, error) {
	items := doc.Records
	if items == nil {
		items = make(map[core.RecordID]R)
	}
	return yaml.Marshal(yamlDocument[R]{
		IDCounter: toWireCounter(doc.Counter),
		Items:     items,
	})
}

func (c *YAMLCodec[R]) Decode(data []byte) (*core.Document[R], error) {
	var payload yamlDocument[R]
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, corrupt("yaml", err)
	}

	counter, err := payload.IDCounter.counterState()
	if err != nil {
		return nil, corrupt("yaml", err)
	}
	if payload.Items == nil {
		return nil, corrupt("yaml", fmt.Errorf("items are missing"))
	}

	doc := &core.Document[R]{Counter: counter, Records: payload.Items}
	if err := doc.Check(); err != nil {
		return nil, corrupt("yaml", err)
	}
	return doc, nil
}

// --- Registry ---

// CodecByName returns the codec registered under name ("json" or "yaml").
func CodecByName[R any](name string) (core.Codec[R], error) {
	switch strings.ToLower(name) {
	case "", "json":
		return NewJSONCodec[R](), nil
	case "yaml", "yml":
		return NewYAMLCodec[R](), nil
	default:
		return nil, fmt.Errorf("unsupported store format %q", name)
	}
}

// CodecFor picks a codec from the extension of path. Paths without an
// extension use JSON.
func CodecFor[R any](path string) (core.Codec[R], error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return CodecByName[R](ext)
}
