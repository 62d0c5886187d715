package pdf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange = errors.New("invalid page range")
	ErrNoPages      = errors.New("page range selects no pages")
)

// ParseRange expands a selection like "1-3,5" against a document of pageCount pages.
// Spaces are ignored, reversed ranges are normalized and pages outside 1..pageCount
// are dropped. Order and repeats are kept as written.
func ParseRange(spec string, pageCount int) ([]int, error) {
	spec = strings.Join(strings.Fields(spec), "")
	if spec == "" {
		return nil, ErrInvalidRange
	}

	pages := make([]int, 0)
	for _, token := range strings.Split(spec, ",") {
		if token == "" {
			continue
		}
		from, to, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		if from > to {
			from, to = to, from
		}
		from = max(from, 1)
		to = min(to, pageCount)
		for p := from; p <= to; p++ {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return pages, nil
}

func parseToken(token string) (int, int, error) {
	a, b, isRange := strings.Cut(token, "-")
	from, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, token)
	}
	if !isRange {
		return from, from, nil
	}
	to, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, token)
	}
	return from, to, nil
}

// ValidateRange checks the syntax of a page selection without a page count.
func ValidateRange(spec string) error {
	spec = strings.Join(strings.Fields(spec), "")
	if spec == "" {
		return ErrInvalidRange
	}
	seen := false
	for _, token := range strings.Split(spec, ",") {
		if token == "" {
			continue
		}
		if _, _, err := parseToken(token); err != nil {
			return err
		}
		seen = true
	}
	if !seen {
		return ErrInvalidRange
	}
	return nil
}
