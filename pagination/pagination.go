// Package pagination gives list screens one interface over two modes: server
// mode sends page, size, sort and search to the backend, client mode loads
// the whole collection once and filters and slices it in memory.
package pagination

import (
	"fmt"
	"strings"
)

// Mode selects where paging happens. It is configured, never detected.
type Mode string

const (
	// ServerMode delegates paging, sorting and search to the backend.
	ServerMode Mode = "server"
	// ClientMode fetches everything once and pages locally.
	ClientMode Mode = "client"
)

// ParseMode parses "server" or "client".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ServerMode:
		return ServerMode, nil
	case ClientMode:
		return ClientMode, nil
	default:
		return "", fmt.Errorf("pagination: unknown mode %q", s)
	}
}

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// FirstPage is the number of the first page. Pages are 1-based.
const FirstPage = 1

// DefaultSize is used when a non-positive page size is requested.
const DefaultSize = 10

// Query is the list state a screen sends to the backend in server mode.
type Query struct {
	Page      int       `json:"page"`
	Size      int       `json:"size"`
	SortBy    string    `json:"sortBy,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Search    string    `json:"search,omitempty"`
}

// Offset returns the zero-based index of the first item on the page.
func (q Query) Offset() int {
	if q.Page < FirstPage || q.Size <= 0 {
		return 0
	}
	return (q.Page - FirstPage) * q.Size
}

// Normalize clamps Page and Size into range and defaults Direction.
func (q Query) Normalize() Query {
	if q.Page < FirstPage {
		q.Page = FirstPage
	}
	if q.Size <= 0 {
		q.Size = DefaultSize
	}
	if q.Direction != Desc {
		q.Direction = Asc
	}
	return q
}

// Page is the metadata that accompanies one page of results.
type Page struct {
	CurrentPage int   `json:"currentPage"`
	Size        int   `json:"size"`
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
}

// NewPage computes page metadata for total items split into size-item pages.
func NewPage(current, size int, total int64) Page {
	p := Page{CurrentPage: current, Size: size, TotalItems: total}
	if size > 0 {
		p.TotalPages = int((total + int64(size) - 1) / int64(size))
	}
	return p
}

// HasNext reports whether a page follows the current one.
func (p Page) HasNext() bool { return p.CurrentPage < p.TotalPages }

// HasPrev reports whether a page precedes the current one.
func (p Page) HasPrev() bool { return p.CurrentPage > FirstPage }
