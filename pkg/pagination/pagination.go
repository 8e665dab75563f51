package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds page/limit inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Page carries a result slice plus the metadata listing endpoints return.
type Page[T any] struct {
	Count      int64 `json:"count"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	Results    []T   `json:"results"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize returns params with page >= 1 and a bounded limit.
func (p Params) Normalize() Params {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return Params{Page: page, Limit: NormalizeLimit(p.Limit)}
}

// Offset is the number of rows skipped before the current page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// TotalPages computes ceil(count / limit).
func TotalPages(count int64, limit int) int {
	limit = NormalizeLimit(limit)
	if count <= 0 {
		return 0
	}
	return int((count + int64(limit) - 1) / int64(limit))
}

// NewPage assembles a Page envelope, never returning a nil results slice.
func NewPage[T any](params Params, count int64, results []T) Page[T] {
	n := params.Normalize()
	if results == nil {
		results = []T{}
	}
	return Page[T]{
		Count:      count,
		Page:       n.Page,
		Limit:      n.Limit,
		TotalPages: TotalPages(count, n.Limit),
		Results:    results,
	}
}
