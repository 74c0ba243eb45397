// Package reference serves reference genome bases from an indexed FASTA file.
package reference

import (
	"fmt"
	"os"
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants/chromosome"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Provider returns the upper-cased bases of a chromosome over the 0-based
// half-open interval [start, end).
type Provider interface {
	Fetch(chrom string, start, end int64) (string, error)
}

// Fasta is a Provider over an uncompressed FASTA file and its .fai index.
// It is safe for concurrent use.
type Fasta struct {
	path  string
	file  *os.File
	index map[string]FaiEntry
	names []string
	cache *lru.Cache[string, string]
}

var _ Provider = (*Fasta)(nil)

// Open opens a FASTA file. The index is read from path.fai; when absent it
// is built by scanning the file and written next to it if possible.
// cacheSize bounds the number of cached regions, 0 disables caching.
func Open(path string, cacheSize int) (*Fasta, error) {
	if strings.HasSuffix(path, ".gz") {
		return nil, fmt.Errorf("%s: compressed FASTA is not supported, decompress it first", path)
	}
	entries, err := loadIndex(path)
	if err != nil {
		return nil, err
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f := &Fasta{path: path, file: fh, index: make(map[string]FaiEntry, len(entries))}
	for _, e := range entries {
		f.index[e.Name] = e
		f.names = append(f.names, e.Name)
	}
	if cacheSize > 0 {
		if f.cache, err = lru.New[string, string](cacheSize); err != nil {
			fh.Close()
			return nil, err
		}
	}
	return f, nil
}

func loadIndex(path string) ([]FaiEntry, error) {
	fai := path + ".fai"
	if fh, err := os.Open(fai); err == nil {
		defer fh.Close()
		return ReadIndex(fh)
	}

	entries, err := BuildIndex(path)
	if err != nil {
		return nil, err
	}
	if out, err := os.Create(fai); err == nil {
		if werr := WriteIndex(out, entries); werr != nil {
			out.Close()
			os.Remove(fai)
		} else {
			out.Close()
		}
	}
	return entries, nil
}

// Names lists the sequence names in file order.
func (f *Fasta) Names() []string {
	return append([]string(nil), f.names...)
}

func (f *Fasta) Close() error {
	return f.file.Close()
}

// resolve finds the sequence for a chromosome name, trying it as given, then
// with and without the "chr" prefix.
func (f *Fasta) resolve(chrom string) (FaiEntry, bool) {
	for _, name := range []string{chrom, chromosome.WithPrefix(chrom), chromosome.StripPrefix(chrom)} {
		if e, ok := f.index[name]; ok {
			return e, true
		}
	}
	return FaiEntry{}, false
}

func (f *Fasta) Fetch(chrom string, start, end int64) (string, error) {
	entry, ok := f.resolve(chrom)
	if !ok {
		return "", fmt.Errorf("sequence %s not found in %s", chrom, f.path)
	}
	if start < 0 || end <= start || end > entry.Length {
		return "", fmt.Errorf("interval [%d, %d) outside %s (length %d)", start, end, entry.Name, entry.Length)
	}

	cacheKey := fmt.Sprintf("%s:%d-%d", entry.Name, start, end)
	if f.cache != nil {
		if seq, ok := f.cache.Get(cacheKey); ok {
			return seq, nil
		}
	}

	from, to := entry.offsetOf(start), entry.offsetOf(end-1)+1
	buf := make([]byte, to-from)
	if _, err := f.file.ReadAt(buf, from); err != nil {
		return "", fmt.Errorf("reading %s:%d-%d: %w", entry.Name, start, end, err)
	}
	seq := make([]byte, 0, end-start)
	for _, b := range buf {
		if b != '\n' && b != '\r' {
			seq = append(seq, b)
		}
	}
	out := strings.ToUpper(string(seq))

	if f.cache != nil {
		f.cache.Add(cacheKey, out)
	}
	return out, nil
}
