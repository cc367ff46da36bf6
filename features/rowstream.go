package features

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/perimeterx/marshmallow"
)

// GeometryIndexKey is the reserved header key holding the position of the
// geometry column within each row.
const GeometryIndexKey = "geometry_index"

// NewRowStreamIterator decodes the compact binary row-stream format from r.
// Framing, all lengths unsigned varints:
//
//	header : uvarint byte length, then that many bytes of JSON: an object
//	         with the required integer "geometry_index" plus one key per
//	         column, mapping column name to positional index
//	row    : uvarint payload length; payload = uvarint value count, then per
//	         value an uvarint byte length and the raw bytes
//
// The value at geometry_index holds well-known binary geometry bytes. The
// other column values are skipped and not exposed as attributes. A clean EOF
// before a row ends the stream.
//
// The iterator owns r and closes it via Close.
func NewRowStreamIterator(r io.ReadCloser) Iterator {
	return &rowStreamIterator{r: bufio.NewReader(r), closer: r}
}

type rowStreamIterator struct {
	r      *bufio.Reader
	closer io.Closer

	headerRead    bool
	geometryIndex int
	columns       map[string]int

	row    int
	cur    Feature
	err    error
	closed bool
}

// Columns returns the column name to index mapping from the stream header.
// Empty until the first Next call.
func (it *rowStreamIterator) Columns() map[string]int { return it.columns }

func (it *rowStreamIterator) Next() bool {
	if it.err != nil || it.closed {
		return false
	}
	if !it.headerRead {
		if it.err = it.readHeader(); it.err != nil {
			return false
		}
		it.headerRead = true
	}

	payload, err := readBlock(it.r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false // clean end of stream
		}
		it.err = fmt.Errorf("row %d: %w", it.row, err)
		return false
	}

	geometry, err := it.decodeRow(payload)
	if err != nil {
		it.err = err
		return false
	}
	it.cur = Feature{Geometry: geometry, Attributes: NewAttributes()}
	it.row++
	return true
}

func (it *rowStreamIterator) Feature() Feature { return it.cur }

func (it *rowStreamIterator) Err() error { return it.err }

func (it *rowStreamIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.closer.Close()
}

func (it *rowStreamIterator) readHeader() error {
	headerJSON, err := readBlock(it.r)
	if err != nil {
		return &InvalidRowStreamError{Reason: fmt.Sprintf("cannot read header: %v", err)}
	}
	var raw map[string]any
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return &InvalidRowStreamError{Reason: fmt.Sprintf("header is not a JSON object: %v", err)}
	}
	if _, ok := raw[GeometryIndexKey]; !ok {
		return &InvalidRowStreamError{Header: raw, Reason: fmt.Sprintf("missing key %q", GeometryIndexKey)}
	}

	var header struct {
		GeometryIndex int `json:"geometry_index"`
	}
	rest, err := marshmallow.UnmarshalFromJSONMap(raw, &header, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return &InvalidRowStreamError{Header: raw, Reason: err.Error()}
	}
	if header.GeometryIndex < 0 {
		return &InvalidRowStreamError{Header: raw, Reason: fmt.Sprintf("negative %s: %d", GeometryIndexKey, header.GeometryIndex)}
	}

	columns := make(map[string]int, len(rest))
	for name, index := range rest {
		number, ok := index.(float64)
		if !ok {
			return &InvalidRowStreamError{Header: raw, Reason: fmt.Sprintf("column %q has a non-integer index", name)}
		}
		columns[name] = int(number)
	}
	it.geometryIndex = header.GeometryIndex
	it.columns = columns
	return nil
}

func (it *rowStreamIterator) decodeRow(payload []byte) (orb.Geometry, error) {
	r := bytes.NewReader(payload)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("row %d: cannot read value count: %w", it.row, err)
	}
	if uint64(it.geometryIndex) >= count {
		return nil, fmt.Errorf("row %d: %s %d out of range, row has %d values",
			it.row, GeometryIndexKey, it.geometryIndex, count)
	}
	var geometry orb.Geometry
	for i := uint64(0); i < count; i++ {
		value, err := readBlock(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: value %d: %w", it.row, i, err)
		}
		if i != uint64(it.geometryIndex) {
			continue // non-geometry columns are not exposed
		}
		decoded, err := wkb.Unmarshal(value)
		if err != nil {
			return nil, &GeometryDecodeError{Row: it.row, Err: err}
		}
		geometry = decoded
	}
	return geometry, nil
}

// readBlock reads one uvarint-length-framed byte block. io.EOF is returned
// untouched when the stream ends before the length; an EOF inside a block is
// an io.ErrUnexpectedEOF.
func readBlock(r interface {
	io.Reader
	io.ByteReader
}) ([]byte, error) {
	length, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	block := make([]byte, length)
	if _, err := io.ReadFull(r, block); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return block, nil
}
