package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// ParseError describes a malformed input file. Line numbers are 1-based.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dataset: %s:%d: %s", e.Path, e.Line, e.Reason)
}

// LoadOptions contains configuration options for data file parsing.
type LoadOptions struct {
	// Separator is the column separator. The zero value means "any run of
	// whitespace".
	Separator rune

	// SkipLastColumn drops the trailing column of every row, for data files
	// that carry the class as the last attribute.
	SkipLastColumn bool
}

// WithSeparator sets an explicit column separator.
func WithSeparator(sep rune) func(o *LoadOptions) {
	return func(o *LoadOptions) {
		o.Separator = sep
	}
}

// WithSkipLastColumn drops the trailing column of every row.
func WithSkipLastColumn() func(o *LoadOptions) {
	return func(o *LoadOptions) {
		o.SkipLastColumn = true
	}
}

// Load reads a delimiter-separated numeric data file, one point per line.
// Blank lines and lines starting with '#' are skipped.
func Load(path string, optFns ...func(o *LoadOptions)) (*Dataset, error) {
	var opts LoadOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var points [][]float64
	dim := -1

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := splitFields(text, opts.Separator)
		if opts.SkipLastColumn {
			if len(fields) < 2 {
				return nil, &ParseError{Path: path, Line: line, Reason: "no attributes left after dropping the trailing column"}
			}
			fields = fields[:len(fields)-1]
		}
		if dim == -1 {
			dim = len(fields)
		} else if len(fields) != dim {
			return nil, &ParseError{Path: path, Line: line, Reason: fmt.Sprintf("expected %d columns, got %d", dim, len(fields))}
		}

		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, &ParseError{Path: path, Line: line, Reason: fmt.Sprintf("column %d: %q is not a number", i+1, field)}
			}
			row[i] = v
		}
		points = append(points, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, &ParseError{Path: path, Line: 0, Reason: "no data rows"}
	}

	ds, err := New(points)
	if err != nil {
		return nil, &ParseError{Path: path, Line: 0, Reason: err.Error()}
	}
	return ds, nil
}

// LoadLabels reads a label file with one labeled vertex index per line.
// Blank lines and lines starting with '#' are skipped. Range checking
// against the point count happens in Dataset.AttachLabels.
func LoadLabels(path string) (*roaring.Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	labeled := roaring.New()

	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		idx, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return nil, &ParseError{Path: path, Line: line, Reason: fmt.Sprintf("%q is not a vertex index", text)}
		}
		labeled.Add(uint32(idx))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return labeled, nil
}

func splitFields(text string, sep rune) []string {
	if sep == 0 {
		return strings.Fields(text)
	}
	fields := strings.Split(text, string(sep))
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}
