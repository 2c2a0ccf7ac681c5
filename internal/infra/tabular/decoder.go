// Package tabular turns uploaded spreadsheet and delimited files into a stream of raw rows.
package tabular

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"sales-import/internal/domain"
	"sales-import/internal/domain/model"
)

type Format string

const (
	FormatSpreadsheet Format = "spreadsheet"
	FormatDelimited   Format = "delimited"
)

// FormatFromFileName maps a lower-cased extension to a decoder format.
func FormatFromFileName(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".xlsx", ".xls":
		return FormatSpreadsheet, nil
	case ".csv":
		return FormatDelimited, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFileFormat, ext)
	}
}

// RowIterator yields data rows in source order. Next returns io.EOF once the
// source is exhausted; any other error is fatal and wraps domain.ErrFatalDecode.
type RowIterator interface {
	Next() (model.RawRow, error)
	Close() error
}

// NewDecoder reads the header of r and returns an iterator over the rows that follow.
func NewDecoder(format Format, r io.Reader) (RowIterator, error) {
	var (
		it  RowIterator
		err error
	)
	switch format {
	case FormatDelimited:
		it, err = newCSVDecoder(r)
	case FormatSpreadsheet:
		it, err = newXLSXDecoder(r)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrUnsupportedFileFormat, format)
	}
	if err != nil {
		closeSource(r)
		return nil, err
	}
	return it, nil
}

func fatal(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrFatalDecode, fmt.Sprintf(format, args...))
}

func closeSource(r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
