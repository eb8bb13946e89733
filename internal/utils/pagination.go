package utils

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds pagination parameters. A zero Limit means no paging.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// Enabled reports whether a page was requested.
func (p Pagination) Enabled() bool {
	return p.Limit > 0
}

// ParsePagination reads page and limit query params with sane defaults. When
// neither is present the zero Pagination is returned.
func ParsePagination(c *fiber.Ctx) Pagination {
	if c.Query("page") == "" && c.Query("limit") == "" {
		return Pagination{}
	}

	page := parseInt(c.Query("page", "1"), 1)
	limit := parseInt(c.Query("limit", "20"), 20)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
