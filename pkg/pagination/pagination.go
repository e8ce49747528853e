package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds page-based pagination parameters extracted from a request.
// Page is 1-based.
type Params struct {
	Page  int
	Limit int
}

// FromContext reads ?page= and ?limit= (or ?per_page=). Missing or invalid
// values fall back to page 1 and DefaultLimit; limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit, _ = strconv.Atoi(c.QueryParam("per_page"))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	return Params{Page: page, Limit: limit}
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// SQL returns the LIMIT and OFFSET clause for SQL queries.
func (p Params) SQL() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset())
}

// Pages returns the number of pages needed for total items.
func (p Params) Pages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

type Meta struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Pages   int `json:"pages"`
}

// Response wraps a paginated API response.
type Response struct {
	Data interface{} `json:"data"`
	Meta Meta        `json:"meta"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Data: data,
		Meta: Meta{
			Total:   total,
			Page:    p.Page,
			PerPage: p.Limit,
			Pages:   p.Pages(total),
		},
	}
}

// Sort is a whitelisted ORDER BY column and direction.
type Sort struct {
	Column string
	Desc   bool
}

func (s Sort) SQL() string {
	if s.Desc {
		return s.Column + " DESC"
	}
	return s.Column + " ASC"
}

// SortFromContext reads ?sort= and ?order=. allowed maps public field names
// to SQL columns; def is used when sort is absent.
func SortFromContext(c echo.Context, allowed map[string]string, def Sort) (Sort, error) {
	s := def
	if field := c.QueryParam("sort"); field != "" {
		col, ok := allowed[field]
		if !ok {
			return Sort{}, fmt.Errorf("unsupported sort field %q", field)
		}
		s.Column = col
	}
	switch strings.ToLower(c.QueryParam("order")) {
	case "":
	case "asc":
		s.Desc = false
	case "desc":
		s.Desc = true
	default:
		return Sort{}, fmt.Errorf("order must be asc or desc")
	}
	return s, nil
}
