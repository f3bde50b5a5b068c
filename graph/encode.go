package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
)

// Format selects the output rendering of an assembled graph.
type Format int

const (
	// FormatEdgeList renders one "source target weight" line per edge.
	FormatEdgeList Format = iota

	// FormatNet renders the Pajek network format: a vertex block followed
	// by an edge block, with 1-based vertex ids.
	FormatNet
)

// ParseFormat parses a format name ("edgelist" or "net").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "edgelist":
		return FormatEdgeList, nil
	case "net":
		return FormatNet, nil
	default:
		return 0, fmt.Errorf("graph: unknown output format %q", s)
	}
}

func (f Format) String() string {
	switch f {
	case FormatEdgeList:
		return "edgelist"
	case FormatNet:
		return "net"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'g', -1, 64)
}

// EncodeEdgeList writes g as a line-oriented edge list, ascending by the
// canonical (source, target) pair.
func EncodeEdgeList(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	for _, e := range g.Edges() {
		if _, err := fmt.Fprintf(bw, "%d %d %s\n", e.A, e.B, formatWeight(e.Weight)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodeNet writes g in the Pajek network format: a *Vertices block with
// 1-based ids followed by an *Edges block.
func EncodeNet(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "*Vertices %d\n", g.VertexCount()); err != nil {
		return err
	}
	for i := 1; i <= g.VertexCount(); i++ {
		if _, err := fmt.Fprintf(bw, "%d %q\n", i, strconv.Itoa(i-1)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(bw, "*Edges"); err != nil {
		return err
	}
	for _, e := range g.Edges() {
		if _, err := fmt.Fprintf(bw, "%d %d %s\n", e.A+1, e.B+1, formatWeight(e.Weight)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Encode writes g to w in the given format.
func Encode(w io.Writer, g *Graph, format Format) error {
	switch format {
	case FormatEdgeList:
		return EncodeEdgeList(w, g)
	case FormatNet:
		return EncodeNet(w, g)
	default:
		return fmt.Errorf("graph: unknown output format %d", int(format))
	}
}

// WriteFile renders g to path in the given format. A ".gz" or ".lz4"
// extension wraps the output in the matching compressor. The file is written
// to a temporary sibling and renamed into place, so a failed run never
// leaves a partial output file behind.
func WriteFile(path string, g *Graph, format Format) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gbili-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	var w io.Writer = tmp
	var closeCompressor func() error
	switch filepath.Ext(path) {
	case ".gz":
		zw := gzip.NewWriter(tmp)
		w, closeCompressor = zw, zw.Close
	case ".lz4":
		zw := lz4.NewWriter(tmp)
		w, closeCompressor = zw, zw.Close
	}

	if err = Encode(w, g, format); err != nil {
		return err
	}
	if closeCompressor != nil {
		if err = closeCompressor(); err != nil {
			return err
		}
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
