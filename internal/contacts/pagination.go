package contacts

const (
	// DefaultPerPage is the page size used when the client does not ask for one.
	DefaultPerPage = 5
	// MaxPerPage caps the page size; larger requests are clamped, not rejected.
	MaxPerPage = 100
)

// ListParams carry the pagination and search inputs for a list request.
type ListParams struct {
	Page    int
	PerPage int
	Query   string
}

// PageMeta describes the position of a page within the full result set.
// From and To are 1-based index bounds of the items on this page; both are
// nil when the page is empty.
type PageMeta struct {
	CurrentPage int
	PerPage     int
	Total       int
	LastPage    int
	From        *int
	To          *int
}

// clamp normalises pagination inputs: page is at least 1 and per_page is
// forced into [1, MaxPerPage].
func (p ListParams) clamp() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 1
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// newPageMeta derives page metadata from the clamped params, the total match
// count, and the number of items actually on the page. An empty result set
// reports last_page 1.
func newPageMeta(page, perPage, total, count int) PageMeta {
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	meta := PageMeta{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}

	if count > 0 {
		from := (page-1)*perPage + 1
		to := from + count - 1
		meta.From = &from
		meta.To = &to
	}

	return meta
}
