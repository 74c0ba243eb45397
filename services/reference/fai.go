package reference

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// FaiEntry is one line of a samtools .fai index.
type FaiEntry struct {
	Name      string
	Length    int64
	Offset    int64
	LineBases int64
	LineWidth int64
}

// offsetOf gives the file offset of the 0-based base i of the sequence.
func (e FaiEntry) offsetOf(i int64) int64 {
	return e.Offset + (i/e.LineBases)*e.LineWidth + i%e.LineBases
}

func ReadIndex(r io.Reader) ([]FaiEntry, error) {
	var entries []FaiEntry
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			return nil, fmt.Errorf("fai line %d: expected 5 fields, got %d", n, len(fields))
		}
		var nums [4]int64
		for i := range nums {
			v, err := strconv.ParseInt(fields[i+1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("fai line %d: %w", n, err)
			}
			nums[i] = v
		}
		if nums[2] <= 0 || nums[3] < nums[2] {
			return nil, fmt.Errorf("fai line %d: invalid line layout", n)
		}
		entries = append(entries, FaiEntry{
			Name:      fields[0],
			Length:    nums[0],
			Offset:    nums[1],
			LineBases: nums[2],
			LineWidth: nums[3],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func WriteIndex(w io.Writer, entries []FaiEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s\t%d\t%d\t%d\t%d\n", e.Name, e.Length, e.Offset, e.LineBases, e.LineWidth); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// BuildIndex scans an uncompressed FASTA file and computes its .fai entries.
// Every sequence line but the last of a record must have the same length.
func BuildIndex(path string) ([]FaiEntry, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var (
		entries []FaiEntry
		cur     *FaiEntry
		offset  int64
		// set once a record has seen a line shorter than its line length
		short bool
	)
	flush := func() {
		if cur != nil {
			entries = append(entries, *cur)
		}
	}

	br := bufio.NewReaderSize(fh, 1<<20)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			width := int64(len(line))
			content := bytes.TrimRight(line, "\r\n")

			switch {
			case len(content) > 0 && content[0] == '>':
				flush()
				fields := bytes.Fields(content[1:])
				if len(fields) == 0 {
					return nil, fmt.Errorf("%s: header without a sequence name", path)
				}
				cur = &FaiEntry{Name: string(fields[0]), Offset: offset + width}
				short = false
			case cur == nil:
				if len(content) > 0 {
					return nil, fmt.Errorf("%s: sequence data before the first header", path)
				}
			case len(content) == 0:
				short = true
			default:
				bases := int64(len(content))
				if cur.LineBases == 0 {
					cur.LineBases, cur.LineWidth = bases, width
				} else if short || bases > cur.LineBases {
					return nil, fmt.Errorf("%s: record %s has inconsistent line lengths", path, cur.Name)
				}
				if bases < cur.LineBases {
					short = true
				}
				cur.Length += bases
			}
			offset += width
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	flush()
	return entries, nil
}
