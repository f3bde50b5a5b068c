package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		ds, err := New([][]float64{{1, 2}, {3, 4}})
		require.NoError(t, err)
		assert.Equal(t, 2, ds.Len())
		assert.Equal(t, 2, ds.Dim())
		assert.Equal(t, []float64{3, 4}, ds.Point(1))
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})

	t.Run("RaggedRows", func(t *testing.T) {
		_, err := New([][]float64{{1, 2}, {3}})
		assert.Error(t, err)
	})

	t.Run("NonFinite", func(t *testing.T) {
		_, err := New([][]float64{{1, math.NaN()}})
		assert.Error(t, err)

		_, err = New([][]float64{{math.Inf(1), 0}})
		assert.Error(t, err)
	})
}

func TestAttachLabels(t *testing.T) {
	ds, err := New([][]float64{{0}, {1}, {2}})
	require.NoError(t, err)

	t.Run("Valid", func(t *testing.T) {
		require.NoError(t, ds.AttachLabels(roaring.BitmapOf(0, 2)))
		assert.True(t, ds.Labeled(0))
		assert.False(t, ds.Labeled(1))
		assert.True(t, ds.Labeled(2))
		assert.Equal(t, 2, ds.LabeledCount())
		assert.Equal(t, []uint32{0, 2}, ds.LabeledIndices())
	})

	t.Run("OutOfRange", func(t *testing.T) {
		assert.Error(t, ds.AttachLabels(roaring.BitmapOf(3)))
	})

	t.Run("Nil", func(t *testing.T) {
		require.NoError(t, ds.AttachLabels(nil))
		assert.Equal(t, 0, ds.LabeledCount())
	})
}

func TestLoad(t *testing.T) {
	t.Run("Whitespace", func(t *testing.T) {
		path := writeFile(t, "data.txt", "1.0 2.0\n# comment\n\n3.5\t4.5\n")
		ds, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{1, 2}, {3.5, 4.5}}, ds.Points())
	})

	t.Run("CommaSeparated", func(t *testing.T) {
		path := writeFile(t, "data.csv", "1,2,3\n4, 5 ,6\n")
		ds, err := Load(path, WithSeparator(','))
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, ds.Points())
	})

	t.Run("SkipLastColumn", func(t *testing.T) {
		path := writeFile(t, "data.txt", "1 2 0\n3 4 1\n")
		ds, err := Load(path, WithSkipLastColumn())
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, ds.Points())
	})

	t.Run("BadNumber", func(t *testing.T) {
		path := writeFile(t, "data.txt", "1 2\n3 oops\n")
		var pe *ParseError
		_, err := Load(path)
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 2, pe.Line)
	})

	t.Run("RaggedRows", func(t *testing.T) {
		path := writeFile(t, "data.txt", "1 2\n3\n")
		var pe *ParseError
		_, err := Load(path)
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 2, pe.Line)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		path := writeFile(t, "data.txt", "# only a comment\n")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})
}

func TestLoadLabels(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		path := writeFile(t, "labels.txt", "0\n3\n# comment\n7\n")
		labeled, err := LoadLabels(path)
		require.NoError(t, err)
		assert.Equal(t, []uint32{0, 3, 7}, labeled.ToArray())
	})

	t.Run("BadIndex", func(t *testing.T) {
		path := writeFile(t, "labels.txt", "0\n-4\n")
		var pe *ParseError
		_, err := LoadLabels(path)
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 2, pe.Line)
	})
}
