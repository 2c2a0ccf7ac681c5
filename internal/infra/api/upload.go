package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"sales-import/internal/infra/tabular"
)

var errNoUpload = errors.New(`multipart field "file" is required`)

// spooledUpload is an upload copied to a temp file. Close removes the file,
// so whoever owns the import run owns its cleanup.
type spooledUpload struct {
	*os.File
	FileName string
}

func (u *spooledUpload) Close() error {
	cerr := u.File.Close()
	rerr := os.Remove(u.File.Name())
	if errors.Is(rerr, os.ErrNotExist) {
		rerr = nil
	}
	return errors.Join(cerr, rerr)
}

// spoolUpload streams the named multipart field to disk without buffering the
// whole request in memory. The extension is checked before any bytes are copied.
func spoolUpload(r *http.Request, field string) (*spooledUpload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errNoUpload
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() != field {
			_ = part.Close()
			continue
		}
		return spoolPart(part)
	}
}

func spoolPart(part *multipart.Part) (*spooledUpload, error) {
	defer part.Close()

	name := filepath.Base(strings.ReplaceAll(part.FileName(), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return nil, errNoUpload
	}
	if _, err := tabular.FormatFromFileName(name); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "sales-import-*"+filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	u := &spooledUpload{File: f, FileName: name}
	if _, err := io.Copy(f, part); err != nil {
		_ = u.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = u.Close()
		return nil, fmt.Errorf("rewind spool file: %w", err)
	}
	return u, nil
}
