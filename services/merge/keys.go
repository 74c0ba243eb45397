package merge

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
)

var (
	missingTokens  = toSet(constants.MissingValueTokens)
	positionTokens = toSet(constants.PositionColumns)
)

// canonicalKey builds the key tuple of a record over keyCols. Values are
// trimmed and position columns are rendered in their integer form, so "100"
// and "100.0" denote the same variant. A missing value or an unusable
// position yields an error describing the problem.
func canonicalKey(rec table.Record, keyCols []string) (table.Key, error) {
	values := make([]string, len(keyCols))
	for i, col := range keyCols {
		raw, ok := rec[col]
		if !ok {
			return table.Key{}, fmt.Errorf("no %s column", col)
		}
		v := strings.TrimSpace(raw)
		if missingTokens[strings.ToLower(v)] {
			return table.Key{}, fmt.Errorf("missing %s value %q", col, raw)
		}
		if positionTokens[strings.ToLower(col)] {
			pos, err := canonicalPosition(v)
			if err != nil {
				return table.Key{}, fmt.Errorf("%s: %w", col, err)
			}
			v = pos
		}
		values[i] = v
	}
	return table.NewKey(values...), nil
}

func canonicalPosition(v string) (string, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n <= 0 {
			return "", fmt.Errorf("position %d is not positive", n)
		}
		return strconv.FormatInt(n, 10), nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f >= math.MaxInt64 {
		return "", fmt.Errorf("unparseable position %q", v)
	}
	if f <= 0 {
		return "", fmt.Errorf("position %q is not positive", v)
	}
	return strconv.FormatInt(int64(f), 10), nil
}

// rawKey renders whatever key values a record has, for error reports.
func rawKey(rec table.Record, keyCols []string) string {
	values := make([]string, len(keyCols))
	for i, c := range keyCols {
		values[i] = rec[c]
	}
	return strings.Join(values, ":")
}

func toSet(list []string) map[string]bool {
	s := make(map[string]bool, len(list))
	for _, v := range list {
		s[v] = true
	}
	return s
}
