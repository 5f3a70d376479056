package models

// Pagination contains pagination metadata returned in list responses.
// NextPage and PrevPage are null at the boundaries.
type Pagination struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	NextPage    *int `json:"nextPage"`
	PrevPage    *int `json:"prevPage"`
	LastPage    int  `json:"lastPage"`
}

// NewPagination derives page boundaries from a total row count.
func NewPagination(total, page, itemsPerPage int) *Pagination {
	if page < 1 {
		page = 1
	}
	if itemsPerPage < 1 {
		itemsPerPage = 10
	}

	lastPage := (total + itemsPerPage - 1) / itemsPerPage
	p := &Pagination{Total: total, CurrentPage: page, LastPage: lastPage}

	if next := page + 1; next <= lastPage {
		p.NextPage = &next
	}
	if prev := page - 1; prev >= 1 {
		p.PrevPage = &prev
	}
	return p
}
