package cxxbind

import (
	"fmt"
	"strings"

	"github.com/jward/cxxbind/internal/store"
)

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByKey    SortField = "key"
	SortByName   SortField = "name"
	SortByKind   SortField = "kind"
	SortByHeader SortField = "header"
	SortByBridge SortField = "bridge"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// ItemFilter specifies which items to include. All fields are optional.
type ItemFilter struct {
	Kinds        []string // match any of these kinds
	Accepted     *bool
	Reason       *string // exclusion reason kind
	HeaderPrefix *string // restrict to items declared under this include path
}

func itemSortColumn(field SortField) string {
	switch field {
	case SortByName:
		return "name"
	case SortByKind:
		return "kind"
	case SortByHeader:
		return "header"
	case SortByBridge:
		return "bridge_name"
	default:
		return "item_key"
	}
}

func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

// Items lists recorded items matching filter.
func (q *QueryBuilder) Items(filter ItemFilter, sort Sort, page Pagination) (*PagedResult[Item], error) {
	res, err := q.searchItems("", filter, sort, page)
	if err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	return res, nil
}

// SearchItems matches qualified names against a glob pattern where * matches
// any run of characters ("geo::*", "*::area"), then applies filter.
func (q *QueryBuilder) SearchItems(pattern string, filter ItemFilter, sort Sort, page Pagination) (*PagedResult[Item], error) {
	res, err := q.searchItems(pattern, filter, sort, page)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return res, nil
}

func (q *QueryBuilder) searchItems(pattern string, filter ItemFilter, sort Sort, page Pagination) (*PagedResult[Item], error) {
	page = page.normalize()

	var where []string
	var args []any

	// Escape literal % and _ first, then convert * to %.
	if pattern != "" && pattern != "*" {
		like := strings.ReplaceAll(escapeLike(pattern), "*", "%")
		where = append(where, "name LIKE ? ESCAPE '\\'")
		args = append(args, like)
	}
	if len(filter.Kinds) > 0 {
		where = append(where, "kind IN ("+strings.Repeat("?,", len(filter.Kinds)-1)+"?)")
		for _, k := range filter.Kinds {
			args = append(args, k)
		}
	}
	if filter.Accepted != nil {
		where = append(where, "accepted = ?")
		args = append(args, *filter.Accepted)
	}
	if filter.Reason != nil {
		where = append(where, "reason = ?")
		args = append(args, *filter.Reason)
	}
	if filter.HeaderPrefix != nil && *filter.HeaderPrefix != "" {
		where = append(where, "header LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(*filter.HeaderPrefix)+"%")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := q.store.DB().QueryRow("SELECT COUNT(*) FROM items "+whereClause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT %s FROM items %s ORDER BY %s %s, item_key LIMIT ? OFFSET ?`,
		store.ItemCols, whereClause, itemSortColumn(sort.Field), sortDirection(sort.Order),
	)
	rows, err := q.store.DB().Query(dataSQL, append(append([]any{}, args...), page.Limit, page.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := store.ScanItemRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return &PagedResult[Item]{Items: items, TotalCount: total}, nil
}

// RunSummary is a high-level overview of the recorded run.
type RunSummary struct {
	Run          *Run
	KindCounts   map[string]int // items per kind
	ReasonCounts map[string]int // excluded items per reason kind
	ClassCounts  map[string]int // type database entries per classification
}

// Summary returns counts over the recorded run. Run is nil when nothing has
// been recorded.
func (q *QueryBuilder) Summary() (*RunSummary, error) {
	run, err := q.store.LatestRun()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	s := &RunSummary{Run: run}
	if s.KindCounts, err = q.countBy("SELECT kind, COUNT(*) FROM items GROUP BY kind"); err != nil {
		return nil, fmt.Errorf("summary: kinds: %w", err)
	}
	if s.ReasonCounts, err = q.countBy("SELECT reason, COUNT(*) FROM items WHERE accepted = 0 GROUP BY reason"); err != nil {
		return nil, fmt.Errorf("summary: reasons: %w", err)
	}
	if s.ClassCounts, err = q.countBy("SELECT class, COUNT(*) FROM type_classes GROUP BY class"); err != nil {
		return nil, fmt.Errorf("summary: classes: %w", err)
	}
	return s, nil
}

func (q *QueryBuilder) countBy(query string) (map[string]int, error) {
	rows, err := q.store.DB().Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

// escapeLike escapes SQL LIKE special characters (% and _) with backslash.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
