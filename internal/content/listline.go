package content

import (
	"strconv"
	"strings"
)

// maxListNumberLen bounds the numeric prefix of an ordered list item.
const maxListNumberLen = 5

// IsListLine reports whether line looks like a bulleted ("* ") or numbered
// ("12. ") list item.
func IsListLine(line string) bool {
	if strings.HasPrefix(line, "* ") {
		return true
	}

	pos := strings.Index(line, ". ")
	if pos <= 0 || pos > maxListNumberLen {
		return false
	}
	num := line[:pos]
	for i := 0; i < len(num); i++ {
		if num[i] < '0' || num[i] > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return false
	}
	return strings.HasPrefix(line, strconv.Itoa(n)+".")
}

// isFence reports whether line opens or closes a fenced code block.
func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), fence)
}
