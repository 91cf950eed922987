package fs

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tally/pkg/core"
)

type item struct {
	Description string  `json:"description" yaml:"description"`
	Amount      float64 `json:"amount" yaml:"amount"`
}

func sampleDocument() *core.Document[item] {
	doc := core.NewDocument[item]()
	doc.Counter = core.CounterState{NextID: 4, FreeIDs: []core.RecordID{2}}
	doc.Records[1] = item{Description: "Lunch", Amount: 20}
	doc.Records[3] = item{Description: "Bus", Amount: 2.5}
	return doc
}

func TestCodecs_RoundTrip(t *testing.T) {
	codecs := []core.Codec[item]{NewJSONCodec[item](), NewYAMLCodec[item]()}

	for _, codec := range codecs {
		t.Run(codec.Name(), func(t *testing.T) {
			for name, doc := range map[string]*core.Document[item]{
				"empty":  core.NewDocument[item](),
				"sample": sampleDocument(),
			} {
				data, err := codec.Encode(doc)
				require.NoError(t, err, name)

				got, err := codec.Decode(data)
				require.NoError(t, err, name)
				assert.Equal(t, doc, got, name)
			}
		})
	}
}

func TestJSONCodec_Golden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata"))
	codec := NewJSONCodec[item]()

	data, err := codec.Encode(core.NewDocument[item]())
	require.NoError(t, err)
	g.Assert(t, "bootstrap", data)

	data, err = codec.Encode(sampleDocument())
	require.NoError(t, err)
	g.Assert(t, "sample", data)
}

func TestJSONCodec_ReadsReferenceLayout(t *testing.T) {
	// Compact input with keys in any order decodes the same.
	input := `{"items":{"10":{"description":"Rent","amount":900},"2":{"description":"Tea","amount":1}},
	"id_counter":{"available_ids":[1,3],"counter":11}}`

	doc, err := NewJSONCodec[item]().Decode([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, core.CounterState{NextID: 11, FreeIDs: []core.RecordID{1, 3}}, doc.Counter)
	assert.Equal(t, []core.RecordID{2, 10}, doc.IDs())
	assert.Equal(t, "Rent", doc.Records[10].Description)
}

func TestCodecs_Corrupt(t *testing.T) {
	jsonCases := map[string]string{
		"not json":            `{"id_counter":`,
		"empty file":          ``,
		"missing id_counter":  `{"items":{}}`,
		"missing counter":     `{"id_counter":{"available_ids":[]},"items":{}}`,
		"missing items":       `{"id_counter":{"counter":1,"available_ids":[]}}`,
		"non numeric key":     `{"id_counter":{"counter":2,"available_ids":[]},"items":{"one":{}}}`,
		"padded key":          `{"id_counter":{"counter":2,"available_ids":[]},"items":{"01":{}}}`,
		"counter zero":        `{"id_counter":{"counter":0,"available_ids":[]},"items":{}}`,
		"item beyond counter": `{"id_counter":{"counter":2,"available_ids":[]},"items":{"5":{}}}`,
		"available and live":  `{"id_counter":{"counter":3,"available_ids":[1]},"items":{"1":{}}}`,
		"unsorted available":  `{"id_counter":{"counter":5,"available_ids":[3,1]},"items":{}}`,
		"wrong counter type":  `{"id_counter":{"counter":"1","available_ids":[]},"items":{}}`,
		"items is a list":     `{"id_counter":{"counter":1,"available_ids":[]},"items":[]}`,
	}
	for name, input := range jsonCases {
		t.Run("json/"+name, func(t *testing.T) {
			_, err := NewJSONCodec[item]().Decode([]byte(input))
			assert.ErrorIs(t, err, core.ErrCorruptStore)
		})
	}

	yamlCases := map[string]string{
		"not yaml":         "id_counter: [\n",
		"missing counter":  "id_counter:\n  available_ids: []\nitems: {}\n",
		"missing items":    "id_counter:\n  counter: 1\n  available_ids: []\n",
		"free id too high": "id_counter:\n  counter: 2\n  available_ids: [2]\nitems: {}\n",
	}
	for name, input := range yamlCases {
		t.Run("yaml/"+name, func(t *testing.T) {
			_, err := NewYAMLCodec[item]().Decode([]byte(input))
			assert.ErrorIs(t, err, core.ErrCorruptStore)
		})
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"expenseDB.json", "json"},
		{"tasks.yaml", "yaml"},
		{"tasks.YML", "yaml"},
		{"store", "json"},
	}
	for _, tt := range tests {
		codec, err := CodecFor[item](tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, codec.Name(), tt.path)
	}

	_, err := CodecFor[item]("notes.md")
	assert.Error(t, err)
	_, err = CodecByName[item]("toml")
	assert.Error(t, err)
}
