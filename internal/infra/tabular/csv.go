package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"sales-import/internal/domain/model"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

type csvDecoder struct {
	src        io.Reader
	r          *csv.Reader
	headerLine int
	done       bool
}

func newCSVDecoder(src io.Reader) (*csvDecoder, error) {
	br := bufio.NewReader(src)
	if prefix, err := br.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = br.Discard(len(byteOrderMark))
	}

	r := csv.NewReader(br)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fatal("missing header row")
	}
	if err != nil {
		return nil, fatal("read csv header: %v", err)
	}
	if len(header) < len(Columns) {
		return nil, fatal("header has %d columns, want %d", len(header), len(Columns))
	}
	line, _ := r.FieldPos(0)

	return &csvDecoder{src: src, r: r, headerLine: line}, nil
}

// Next binds fields by position. Row numbers follow physical lines after the
// header, so skipped empty lines still advance the count.
func (d *csvDecoder) Next() (model.RawRow, error) {
	if d.done {
		return model.RawRow{}, io.EOF
	}
	record, err := d.r.Read()
	if errors.Is(err, io.EOF) {
		d.done = true
		return model.RawRow{}, io.EOF
	}
	if err != nil {
		d.done = true
		return model.RawRow{}, fatal("read csv: %v", err)
	}
	line, _ := d.r.FieldPos(0)

	fields := make(map[string]string, len(Columns))
	for i, col := range Columns {
		if i < len(record) {
			fields[col.Key] = strings.TrimSpace(record[i])
		} else {
			fields[col.Key] = ""
		}
	}
	return model.RawRow{Index: line - d.headerLine, Fields: fields}, nil
}

func (d *csvDecoder) Close() error {
	d.done = true
	return closeSource(d.src)
}
