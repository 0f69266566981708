package httpx

import (
	"net/http"
	"time"
)

// Now is replaceable in tests.
var Now = func() time.Time { return time.Now().UTC() }

type successEnvelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	ItemsPerPage int   `json:"itemsPerPage"`
	TotalItems   int64 `json:"totalItems"`
	TotalPages   int   `json:"totalPages"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

// NewPagination derives page counts from the total.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage:  page,
		ItemsPerPage: limit,
		TotalItems:   total,
		TotalPages:   pages,
		HasNextPage:  page < pages,
		HasPrevPage:  page > 1,
	}
}

type paginatedEnvelope struct {
	Success    bool       `json:"success"`
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
	Timestamp  time.Time  `json:"timestamp"`
}

// WriteSuccess writes {success:true, message, data, timestamp}.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, successEnvelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: Now(),
	})
}

// WritePaginated writes {success:true, data, pagination, timestamp}.
func WritePaginated(w http.ResponseWriter, data any, pagination Pagination) {
	WriteJSON(w, http.StatusOK, paginatedEnvelope{
		Success:    true,
		Data:       data,
		Pagination: pagination,
		Timestamp:  Now(),
	})
}
