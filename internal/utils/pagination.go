// Package utils holds small helpers shared by the HTTP layer.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Window returns the half-open range [start, end) of a 1-based page over
// total items, and the number of pages. page and size must be >= 1. A page
// past the end yields an empty range.
func Window(total, page, size int) (start, end, pages int) {
	pages = (total + size - 1) / size
	start = (page - 1) * size
	if start > total {
		start = total
	}
	end = start + size
	if end > total {
		end = total
	}
	return start, end, pages
}
