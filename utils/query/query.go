package queryHelper

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/dars-api/utils/response"
	"gorm.io/gorm"
)

// FilterKind tells ApplyFilters how to parse a raw query value
type FilterKind int

const (
	FilterInt FilterKind = iota
	FilterBool
	FilterString
)

// Filter is a whitelisted equality filter. Expr is either a column name or
// a full condition containing exactly one "?" placeholder.
type Filter struct {
	Expr string
	Kind FilterKind
}

// ListSpec whitelists what a collection endpoint may search, order and filter on
type ListSpec struct {
	// SearchFields are column names, or conditions with one "?" placeholder
	// that receives the lowered "%term%" pattern
	SearchFields []string
	// OrderingFields maps the public field name to its column
	OrderingFields map[string]string
	Filters        map[string]Filter
	DefaultOrder   string
	Preloads       []string
}

// ListOptions holds the parsed list query string
type ListOptions struct {
	Page     int
	Limit    int
	Search   string
	Ordering string
	Filters  map[string]string
}

// FilterError reports a filter value that could not be parsed
type FilterError struct {
	Field string
	Value string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid value %q for filter %s", e.Value, e.Field)
}

// ParseListOptions reads page, limit, search, ordering and every other
// query parameter from the request
func ParseListOptions(c *fiber.Ctx) ListOptions {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	page, limit = response.NormalizePage(page, limit)

	opts := ListOptions{
		Page:     page,
		Limit:    limit,
		Search:   strings.TrimSpace(c.Query("search")),
		Ordering: c.Query("ordering"),
		Filters:  make(map[string]string),
	}

	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		switch k := string(key); k {
		case "page", "limit", "search", "ordering":
		default:
			opts.Filters[k] = string(value)
		}
	})

	return opts
}

// ApplySearch adds a case-insensitive substring match over the search fields
func ApplySearch(db *gorm.DB, spec ListSpec, term string) *gorm.DB {
	if term == "" || len(spec.SearchFields) == 0 {
		return db
	}

	pattern := "%" + strings.ToLower(term) + "%"
	conditions := make([]string, 0, len(spec.SearchFields))
	args := make([]interface{}, 0, len(spec.SearchFields))
	for _, field := range spec.SearchFields {
		if strings.Contains(field, "?") {
			conditions = append(conditions, field)
		} else {
			conditions = append(conditions, fmt.Sprintf("LOWER(CAST(%s AS TEXT)) LIKE ?", field))
		}
		args = append(args, pattern)
	}

	return db.Where("("+strings.Join(conditions, " OR ")+")", args...)
}

// ApplyFilters adds one equality condition per whitelisted filter present in
// filters. Unknown keys are ignored.
func ApplyFilters(db *gorm.DB, spec ListSpec, filters map[string]string) (*gorm.DB, error) {
	for name, filter := range spec.Filters {
		raw, ok := filters[name]
		if !ok || raw == "" {
			continue
		}

		var value interface{}
		switch filter.Kind {
		case FilterInt:
			n, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return nil, &FilterError{Field: name, Value: raw}
			}
			value = n
		case FilterBool:
			b, err := strconv.ParseBool(strings.ToLower(raw))
			if err != nil {
				return nil, &FilterError{Field: name, Value: raw}
			}
			value = b
		default:
			value = raw
		}

		if strings.Contains(filter.Expr, "?") {
			db = db.Where(filter.Expr, value)
		} else {
			db = db.Where(filter.Expr+" = ?", value)
		}
	}
	return db, nil
}

// ApplyOrdering orders by a comma separated list of fields, each optionally
// prefixed with "-" for descending order. Unknown fields are skipped; when
// nothing valid remains the default order is used.
func ApplyOrdering(db *gorm.DB, spec ListSpec, ordering string) *gorm.DB {
	applied := false
	for _, field := range strings.Split(ordering, ",") {
		field = strings.TrimSpace(field)
		direction := "ASC"
		if strings.HasPrefix(field, "-") {
			direction = "DESC"
			field = field[1:]
		}

		column, ok := spec.OrderingFields[field]
		if !ok {
			continue
		}
		db = db.Order(column + " " + direction)
		applied = true
	}

	if !applied && spec.DefaultOrder != "" {
		db = db.Order(spec.DefaultOrder)
	}
	return db
}

// List runs a filtered, searched, ordered and paginated query for T into out
func List[T any](db *gorm.DB, spec ListSpec, opts ListOptions, out *[]T) (response.PaginationMeta, error) {
	query := ApplySearch(db.Model(new(T)), spec, opts.Search)

	query, err := ApplyFilters(query, spec, opts.Filters)
	if err != nil {
		return response.PaginationMeta{}, err
	}

	// Reusable for both the count and the page query
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.PaginationMeta{}, fmt.Errorf("count: %w", err)
	}

	page, limit := response.NormalizePage(opts.Page, opts.Limit)
	pagination := response.CalculatePagination(page, limit, total)

	pageQuery := ApplyOrdering(query, spec, opts.Ordering)
	for _, preload := range spec.Preloads {
		pageQuery = pageQuery.Preload(preload)
	}

	if err := pageQuery.Limit(limit).Offset((page - 1) * limit).Find(out).Error; err != nil {
		return response.PaginationMeta{}, fmt.Errorf("find: %w", err)
	}

	return pagination, nil
}

// RespondListError maps an error returned by List to an API error response
func RespondListError(c *fiber.Ctx, err error, resource string) error {
	var filterErr *FilterError
	if errors.As(err, &filterErr) {
		return response.FieldError(c, filterErr.Field, "Enter a valid value.")
	}
	return response.InternalServerError(c, "Failed to fetch "+resource)
}
