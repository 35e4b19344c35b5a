package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatFormatter(t *testing.T) {
	tests := []struct {
		precision int
		value     float64
		expected  string
	}{
		{2, 3.14159, "3.14"},
		{1, 0.96, "1.0"},
		{4, 3.14159, "3.1416"},
		{3, 0, "0.000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, floatFormatter(tt.precision)(tt.value))
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, []string{"a", "b"}))
	assert.Equal(t, "[\n  \"a\",\n  \"b\"\n]\n", buf.String())

	err := writeJSON(&buf, make(chan int))
	assert.ErrorContains(t, err, "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		rows     [][]string
		expected string
	}{
		{"rows", []string{"file", "commits"}, [][]string{{"a.py", "3"}, {"b.py", "1"}}, "file,commits\na.py,3\nb.py,1\n"},
		{"no rows", []string{"col1", "col2"}, nil, "col1,col2\n"},
		{"quoted", []string{"file"}, [][]string{{"dir, with comma/a.py"}}, "file\n\"dir, with comma/a.py\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeCSVWithHeader(&buf, tt.header, func(w *csv.Writer) error {
				for _, row := range tt.rows {
					if err := w.Write(row); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}

	t.Run("row error", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeCSVWithHeader(&buf, []string{"col"}, func(*csv.Writer) error { return assert.AnError })
		assert.Equal(t, assert.AnError, err)
	})
}

func TestWriteWithFile(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out.txt")
		require.NoError(t, writeWithFile(target, func(w io.Writer) error {
			_, err := io.WriteString(w, "content")
			return err
		}, "Wrote test"))
		content, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "content", string(content))
	})

	t.Run("writer error", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out.txt")
		err := writeWithFile(target, func(io.Writer) error { return assert.AnError }, "Wrote test")
		assert.Equal(t, assert.AnError, err)
	})

	t.Run("invalid path", func(t *testing.T) {
		err := writeWithFile(filepath.Join(t.TempDir(), "missing", "out.txt"), func(io.Writer) error { return nil }, "Wrote test")
		assert.Error(t, err)
	})
}
