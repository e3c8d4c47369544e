package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
)

// ErrEmptyCSV is returned by DecodeCSV when the input holds a header
// but no data rows, so column types cannot be inferred.
var ErrEmptyCSV = errors.New("CSV contained no rows")

// EncodeCSV writes a record as CSV with a header row. NULLs are
// written as empty fields.
func EncodeCSV(w io.Writer, rec arrow.Record) error {
	cw := csv.NewWriter(w, rec.Schema(),
		csv.WithHeader(true),
		csv.WithNullWriter(""),
	)
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("failed to encode CSV: %w", err)
	}
	return cw.Flush()
}

// DecodeCSV reads CSV with a header row into a single record, column
// types inferred from the data. The caller releases the record.
func DecodeCSV(r io.Reader) (arrow.Record, error) {
	cr := csv.NewInferringReader(r,
		csv.WithHeader(true),
		csv.WithChunk(-1),
		csv.WithNullReader(true, ""),
	)
	defer cr.Release()

	if !cr.Next() {
		if err := cr.Err(); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode CSV: %w", err)
		}
		return nil, ErrEmptyCSV
	}

	rec := cr.Record()
	rec.Retain()
	return rec, nil
}

// WriteCSV exports a record to a local path, file:// or s3:// URL.
func WriteCSV(path string, rec arrow.Record, cfg *S3Config) error {
	w, err := OpenWriter(path, cfg)
	if err != nil {
		return err
	}

	if err := EncodeCSV(w, rec); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ReadCSV imports a record from a local path, file://, http(s):// or
// s3:// URL.
func ReadCSV(path string, cfg *S3Config) (arrow.Record, error) {
	r, err := OpenReader(path, cfg)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return DecodeCSV(r)
}
