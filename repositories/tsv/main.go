// Package tsv reads and writes the delimited tables exchanged with the
// outside world: raw source inputs, the persisted master table with its
// schema sidecar, and the post-processing output.
package tsv

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/table"

	yaml "gopkg.in/yaml.v2"
)

const (
	SchemaSuffix  = ".schema.yml"
	SummarySuffix = ".summary.yml"
)

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// OpenReader opens a plain or gzip-compressed file. Gzip is detected by the
// magic number or a .gz suffix.
func OpenReader(path string) (io.ReadCloser, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var sig [2]byte
	n, _ := fh.Read(sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, err
	}
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
	}
	return fh, nil
}

// DelimiterFor picks the field separator from the file name: comma for .csv,
// tab for everything else.
func DelimiterFor(path string) rune {
	name := strings.ToLower(strings.TrimSuffix(path, ".gz"))
	if strings.HasSuffix(name, ".csv") {
		return ','
	}
	return '\t'
}

// ReadFrame reads a delimited file with a header line into a frame.
func ReadFrame(path string, delim rune) (*table.Frame, error) {
	rc, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadDelimited(rc, delim, false)
}

// ReadDelimited parses a header line followed by records. With skipMeta, lines
// starting with "##" (VCF / VEP meta lines) are dropped before parsing.
func ReadDelimited(r io.Reader, delim rune, skipMeta bool) (*table.Frame, error) {
	if skipMeta {
		pr := dropMetaLines(r)
		defer pr.Close()
		r = pr
	}
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty table: no header line")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	frame := table.NewFrame(header...)
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		rec := make(table.Record, len(header))
		for i, col := range header {
			if i < len(fields) {
				rec[col] = fields[i]
			}
		}
		frame.Records = append(frame.Records, rec)
	}
	return frame, nil
}

// dropMetaLines streams r without its "##" lines. The caller must close the
// returned reader, which also stops the copying goroutine.
func dropMetaLines(r io.Reader) *io.PipeReader {
	pr, pw := io.Pipe()
	go func() {
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if len(line) > 0 && !strings.HasPrefix(line, "##") {
				if _, werr := io.WriteString(pw, line); werr != nil {
					return
				}
			}
			if err == io.EOF {
				pw.Close()
				return
			}
			if err != nil {
				pw.CloseWithError(err)
				return
			}
		}
	}()
	return pr
}

// WriteFrame writes a frame as a delimited file, delimiter chosen by
// extension.
func WriteFrame(path string, f *table.Frame) error {
	return writeRows(path, f.Columns, func(emit func([]string) error) error {
		for _, rec := range f.Records {
			fields := make([]string, len(f.Columns))
			for i, c := range f.Columns {
				fields[i] = rec[c]
			}
			if err := emit(fields); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteMaster persists the master table and its schema sidecar. Indicator
// columns are written as 1/0.
func WriteMaster(path string, m *table.Master) error {
	schema := m.Schema()
	cols := schema.Columns()
	indicators := make(map[string]bool, len(schema.Indicators))
	for _, c := range schema.Indicators {
		indicators[c] = true
	}

	err := writeRows(path, cols, func(emit func([]string) error) error {
		for _, row := range m.Rows() {
			fields := make([]string, len(cols))
			for i, c := range cols {
				if indicators[c] {
					if row.Indicator(c) {
						fields[i] = "1"
					} else {
						fields[i] = "0"
					}
					continue
				}
				v, _ := row.Get(c)
				fields[i] = table.FormatCell(v)
			}
			if err := emit(fields); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return WriteYAML(path+SchemaSuffix, schema)
}

// ReadSchema loads the schema sidecar of a persisted table. The boolean is
// false when no sidecar exists.
func ReadSchema(path string) (table.Schema, bool, error) {
	var s table.Schema
	b, err := os.ReadFile(path + SchemaSuffix)
	if os.IsNotExist(err) {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, false, fmt.Errorf("parsing schema %s: %w", path+SchemaSuffix, err)
	}
	return s, true, nil
}

// ReadMaster restores a persisted master table. The schema sidecar is
// required: without it indicator and annotation columns are indistinguishable.
func ReadMaster(path string) (*table.Master, error) {
	schema, ok, err := ReadSchema(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no schema sidecar found for %s", path)
	}
	frame, err := ReadFrame(path, DelimiterFor(path))
	if err != nil {
		return nil, err
	}
	if missing := frame.MissingColumns(schema.Columns()); len(missing) > 0 {
		return nil, fmt.Errorf("table %s lacks columns declared in its schema: %s", path, strings.Join(missing, ", "))
	}

	m := table.NewMasterFromSchema(schema)
	for i, rec := range frame.Records {
		values := make([]string, len(schema.KeyCols))
		for j, c := range schema.KeyCols {
			values[j] = rec[c]
		}
		row, err := m.Append(table.NewKey(values...))
		if err != nil {
			return nil, fmt.Errorf("row %d of %s: %w", i+1, path, err)
		}
		for _, c := range schema.Indicators {
			row.Set(c, table.Truthy(rec[c]))
		}
		for _, c := range append(schema.Annotations, schema.Validations...) {
			if v := rec[c]; v != "" {
				row.Set(c, v)
			}
		}
	}
	return m, nil
}

// WriteYAML writes any value as a YAML document.
func WriteYAML(path string, v interface{}) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func writeRows(path string, header []string, body func(emit func([]string) error) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	var w io.Writer = fh
	var gw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gw = gzip.NewWriter(fh)
		w = gw
	}
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	cw.Comma = DelimiterFor(path)

	if err := cw.Write(header); err != nil {
		return err
	}
	if err := body(cw.Write); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if gw != nil {
		if err := gw.Close(); err != nil {
			return err
		}
	}
	return fh.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
