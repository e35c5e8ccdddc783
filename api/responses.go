package api

import "github.com/xraph/gatekeeper/pagination"

// PageResponse is one page of a list.
type PageResponse[T any] struct {
	Items       []T   `json:"items" description:"Items on this page"`
	CurrentPage int   `json:"currentPage" description:"1-based page number"`
	TotalItems  int64 `json:"totalItems" description:"Items across all pages"`
	TotalPages  int   `json:"totalPages" description:"Number of pages"`
}

func newPageResponse[T any](items []T, q pagination.Query, total int64) *PageResponse[T] {
	if items == nil {
		items = []T{}
	}
	p := pagination.NewPage(q.Page, q.Size, total)
	return &PageResponse[T]{
		Items:       items,
		CurrentPage: p.CurrentPage,
		TotalItems:  p.TotalItems,
		TotalPages:  p.TotalPages,
	}
}

// ErrorResponse is the body written for conflicts.
type ErrorResponse struct {
	Status  int    `json:"status" description:"HTTP status code"`
	Message string `json:"message" description:"Human-readable reason"`
}
