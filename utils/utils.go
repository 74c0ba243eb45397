package utils

import "strings"

func StringInSlice(a string, list []string) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}

// SplitCommaSep splits a comma separated setting, dropping blank entries.
func SplitCommaSep(text string) []string {
	out := []string{}
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" && !StringInSlice(p, out) {
			out = append(out, p)
		}
	}
	return out
}
