package storage

import "strings"

// PageRequest is a 1-indexed page of a fixed size.
type PageRequest struct {
	Number int
	Size   int
}

// NewPageRequest coerces out-of-range values: pages below 1 become 1, sizes
// below 1 become 1.
func NewPageRequest(number, size int) PageRequest {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = 1
	}
	return PageRequest{Number: number, Size: size}
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	return (p.Number - 1) * p.Size
}

// Page is one page of a listing with its totals.
type Page[T any] struct {
	CurrentPage int   `json:"currentPage"`
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int   `json:"totalPages"`
	Rows        []T   `json:"rows"`
}

// NewPage assembles a page; rows is never nil in the result.
func NewPage[T any](rows []T, req PageRequest, total int64) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{
		CurrentPage: req.Number,
		TotalCount:  total,
		TotalPages:  TotalPages(total, req.Size),
		Rows:        rows,
	}
}

// TotalPages is ceil(total/size).
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// NormalizeQuery trims q. An empty result means "no filter".
func NormalizeQuery(q string) string {
	return strings.TrimSpace(q)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a LIKE pattern matching q as a literal substring.
func ContainsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
