package diagnosis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableOrder(t *testing.T) {
	tbl, err := DefaultTable()
	require.NoError(t, err)

	var names []string
	for _, c := range tbl.Conditions() {
		names = append(names, c.Name)
		assert.NotEmpty(t, c.Symptoms, c.Name)
		assert.NotEmpty(t, c.Treatment, c.Name)
	}
	assert.Equal(t, []string{
		"leaf blight", "powdery mildew", "leaf spot", "root rot",
		"bacterial wilt", "downy mildew", "anthracnose", "mosaic virus", "leaf rust",
	}, names)

	c, ok := tbl.Lookup("Leaf Rust")
	require.True(t, ok)
	assert.Equal(t, []string{"orange", "brown", "yellow"}, c.ColorHints)
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Condition{
		{Name: "Rot", Synonyms: []string{"rot"}},
		{Name: "rot ", Synonyms: []string{"decay"}},
	})
	assert.ErrorContains(t, err, "duplicate")
}

func TestNewTableValidation(t *testing.T) {
	_, err := NewTable(nil)
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = NewTable([]Condition{{Name: "", Synonyms: []string{"x"}}})
	assert.Error(t, err)

	_, err = NewTable([]Condition{{Name: "x", Synonyms: []string{"  "}}})
	assert.ErrorContains(t, err, "synonym")
}

func TestNewTableNormalizesSynonyms(t *testing.T) {
	tbl, err := NewTable([]Condition{{Name: "Blight", Synonyms: []string{"  Brown   BLIGHT "}}})
	require.NoError(t, err)
	c, _ := tbl.Lookup("blight")
	assert.Equal(t, []string{"brown blight"}, c.Synonyms)
}

func TestLoadTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	doc := `conditions:
  - name: scab
    synonyms: [scab]
    symptoms: corky lesions
  - name: canker
    synonyms: [canker]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	tbl, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	c, ok := tbl.Lookup("scab")
	require.True(t, ok)
	assert.Equal(t, "corky lesions", c.Symptoms)

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMatchColors(t *testing.T) {
	colors := []Color{
		{Red: 150, Green: 90, Blue: 30},
		{Red: 240, Green: 240, Blue: 240},
	}
	assert.Equal(t, []string{"brown", "white"}, MatchColors([]string{"brown", "black", "white"}, colors))
	assert.Equal(t, []string{"green"}, MatchColors([]string{"green"}, []Color{{Name: "Green"}}))
	assert.Nil(t, MatchColors(nil, colors))
	assert.Nil(t, MatchColors([]string{"brown"}, nil))
}
