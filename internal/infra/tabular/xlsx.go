package tabular

import (
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"sales-import/internal/domain/model"
)

type xlsxDecoder struct {
	src    io.Reader
	file   *excelize.File
	rows   *excelize.Rows
	index  map[string]int // column key -> cell position
	rowNum int
	header int
	done   bool
}

func newXLSXDecoder(src io.Reader) (*xlsxDecoder, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fatal("open spreadsheet: %v", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fatal("spreadsheet has no sheets")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fatal("read sheet %q: %v", sheets[0], err)
	}

	d := &xlsxDecoder{src: src, file: f, rows: rows}
	if err := d.readHeader(); err != nil {
		_ = d.release()
		return nil, err
	}
	return d, nil
}

// readHeader treats the first non-empty row as the header and resolves every
// column by label.
func (d *xlsxDecoder) readHeader() error {
	for d.rows.Next() {
		d.rowNum++
		cells, err := d.rows.Columns()
		if err != nil {
			return fatal("read header row: %v", err)
		}
		if isBlank(cells) {
			continue
		}
		d.header = d.rowNum
		d.index = make(map[string]int, len(Columns))
		for _, col := range Columns {
			for i, cell := range cells {
				if col.Matches(cell) {
					d.index[col.Key] = i
					break
				}
			}
			if _, ok := d.index[col.Key]; !ok {
				return fatal("missing required column %q", col.Label)
			}
		}
		return nil
	}
	if err := d.rows.Error(); err != nil {
		return fatal("read header row: %v", err)
	}
	return fatal("missing header row")
}

func (d *xlsxDecoder) Next() (model.RawRow, error) {
	if d.done {
		return model.RawRow{}, io.EOF
	}
	if !d.rows.Next() {
		d.done = true
		if err := d.rows.Error(); err != nil {
			return model.RawRow{}, fatal("read spreadsheet: %v", err)
		}
		return model.RawRow{}, io.EOF
	}
	d.rowNum++
	cells, err := d.rows.Columns()
	if err != nil {
		d.done = true
		return model.RawRow{}, fatal("read row %d: %v", d.rowNum-d.header, err)
	}

	fields := make(map[string]string, len(Columns))
	for key, pos := range d.index {
		if pos < len(cells) {
			fields[key] = strings.TrimSpace(cells[pos])
		} else {
			fields[key] = ""
		}
	}
	return model.RawRow{Index: d.rowNum - d.header, Fields: fields}, nil
}

func (d *xlsxDecoder) Close() error {
	d.done = true
	return d.release()
}

func (d *xlsxDecoder) release() error {
	var errs []error
	if d.rows != nil {
		errs = append(errs, d.rows.Close())
	}
	errs = append(errs, d.file.Close(), closeSource(d.src))
	return errors.Join(errs...)
}
