// Package pagination computes offsets, page counts and the page-index
// sequence shown beside a result list.
package pagination

import "strconv"

// windowThreshold is the largest page count rendered without ellipses
const windowThreshold = 7

// Token is one entry of a page window: either a page number or an ellipsis
type Token struct {
	Page     int
	Ellipsis bool
}

// PageNumber returns a token for page n
func PageNumber(n int) Token { return Token{Page: n} }

// Gap returns an ellipsis token
func Gap() Token { return Token{Ellipsis: true} }

func (t Token) String() string {
	if t.Ellipsis {
		return "..."
	}
	return strconv.Itoa(t.Page)
}

// MarshalText renders tokens as "..." or the page number
func (t Token) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Window returns the page tokens for the given position. total <= 0 yields
// nil, meaning no pagination controls should be shown.
func Window(current, total int) []Token {
	if total <= 0 {
		return nil
	}

	if total <= windowThreshold {
		tokens := make([]Token, 0, total)
		for i := 1; i <= total; i++ {
			tokens = append(tokens, PageNumber(i))
		}
		return tokens
	}

	tokens := []Token{PageNumber(1)}
	if current > 3 {
		tokens = append(tokens, Gap())
	}

	start := max(2, current-1)
	end := min(total-1, current+1)
	for i := start; i <= end; i++ {
		tokens = append(tokens, PageNumber(i))
	}

	if current < total-2 {
		tokens = append(tokens, Gap())
	}
	tokens = append(tokens, PageNumber(total))

	return tokens
}

// Offset returns the zero-based index of the first hit on page
func Offset(page, size int) int {
	if page < 1 || size < 1 {
		return 0
	}
	return (page - 1) * size
}

// TotalPages returns ceil(total/size); 0 when there are no results
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Descriptor summarizes the pagination state of one response
type Descriptor struct {
	CurrentPage  int     `json:"currentPage"`
	TotalPages   int     `json:"totalPages"`
	TotalResults int     `json:"totalResults"`
	PageSize     int     `json:"pageSize"`
	Pages        []Token `json:"pages"`
}

// NewDescriptor builds a Descriptor with the current page clamped into
// [1, max(totalPages,1)]
func NewDescriptor(page, size, total int) Descriptor {
	totalPages := TotalPages(total, size)
	current := min(max(page, 1), max(totalPages, 1))

	return Descriptor{
		CurrentPage:  current,
		TotalPages:   totalPages,
		TotalResults: total,
		PageSize:     size,
		Pages:        Window(current, totalPages),
	}
}

// HasControls reports whether pagination controls should be rendered
func (d Descriptor) HasControls() bool {
	return d.TotalPages > 0
}
