package wallet

import "github.com/andymarkow/botmarket/internal/storage"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type Pagination struct {
	Page  int
	Limit int
	Total int
	Pages int
}

// NormalizePage clamps a raw page request: page defaults to 1, limit to 10 and is capped at 100.
func NormalizePage(page, limit int) storage.Page {
	if page < 1 {
		page = 1
	}

	if limit < 1 {
		limit = DefaultPageLimit
	}

	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	return storage.Page{Number: page, Limit: limit}
}

func NewPagination(page storage.Page, total int) Pagination {
	pages := 0
	if page.Limit > 0 {
		pages = (total + page.Limit - 1) / page.Limit
	}

	return Pagination{
		Page:  page.Number,
		Limit: page.Limit,
		Total: total,
		Pages: pages,
	}
}
