package chromosome

import (
	"fmt"
	"strconv"
	"strings"
)

func ValidListOfHumanChromosomes() []string {
	var humChroms []string
	for i := 1; i < 23; i++ {
		humChroms = append(humChroms, fmt.Sprint(i))
	}
	humChroms = append(humChroms, "X")
	humChroms = append(humChroms, "Y")
	humChroms = append(humChroms, "M")
	return humChroms
}

func IsValidHumanChromosome(text string) bool {
	text = StripPrefix(text)

	// Check if number can be represented as an int as is non-zero
	chromNumber, _ := strconv.Atoi(text)
	if chromNumber > 0 {
		// It can..
		// Check if it in range 1-22
		return chromNumber < 23
	}

	// No it can't..
	// Check if it is an X, Y or M (MT)
	switch strings.ToLower(text) {
	case "x", "y", "m", "mt":
		return true
	}

	return false
}

// StripPrefix removes a leading "chr" (any case) from a chromosome name.
func StripPrefix(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 3 && strings.EqualFold(text[:3], "chr") {
		return text[3:]
	}
	return text
}

// WithPrefix returns the chromosome name as found in UCSC reference FASTA
// files, i.e. prefixed with "chr" when it is not already.
func WithPrefix(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 3 && strings.EqualFold(text[:3], "chr") {
		return "chr" + text[3:]
	}
	return "chr" + text
}
