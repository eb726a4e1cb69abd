package queryHelper

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID      uint
	Name    string
	Color   string
	OwnerID uint
	Active  bool
}

var widgetSpec = ListSpec{
	SearchFields:   []string{"name", "color"},
	OrderingFields: map[string]string{"name": "name", "id": "id"},
	Filters: map[string]Filter{
		"owner_id": {Expr: "owner_id", Kind: FilterInt},
		"active":   {Expr: "active", Kind: FilterBool},
	},
	DefaultOrder: "id ASC",
}

func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.Create([]widget{
		{Name: "Bolt", Color: "Red", OwnerID: 1, Active: true},
		{Name: "Anchor", Color: "Blue", OwnerID: 1, Active: false},
		{Name: "Cog", Color: "red", OwnerID: 2, Active: true},
	}).Error)
	return db
}

func names(ws []widget) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Name)
	}
	return out
}

func TestList_DefaultOrderAndPagination(t *testing.T) {
	db := setupDB(t)

	var page []widget
	meta, err := List(db, widgetSpec, ListOptions{Page: 1, Limit: 2}, &page)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bolt", "Anchor"}, names(page))
	assert.Equal(t, int64(3), meta.Total)
	assert.Equal(t, 2, meta.TotalPages)

	var second []widget
	_, err = List(db, widgetSpec, ListOptions{Page: 2, Limit: 2}, &second)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cog"}, names(second))
}

func TestList_HugePageIsPastTheEnd(t *testing.T) {
	db := setupDB(t)

	for _, page := range []int{184467440737095516, math.MaxInt} {
		var items []widget
		meta, err := List(db, widgetSpec, ListOptions{Page: page, Limit: 100}, &items)
		require.NoError(t, err)
		assert.Empty(t, items, "page=%d", page)
		assert.Equal(t, int64(3), meta.Total)
		assert.Equal(t, math.MaxInt/100, meta.CurrentPage)
	}
}

func TestList_SearchIsCaseInsensitive(t *testing.T) {
	db := setupDB(t)

	var out []widget
	meta, err := List(db, widgetSpec, ListOptions{Search: "RED"}, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Total)
	assert.ElementsMatch(t, []string{"Bolt", "Cog"}, names(out))
}

func TestList_Ordering(t *testing.T) {
	db := setupDB(t)

	var out []widget
	_, err := List(db, widgetSpec, ListOptions{Ordering: "-name"}, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cog", "Bolt", "Anchor"}, names(out))

	// Unknown fields fall back to the default order
	out = nil
	_, err = List(db, widgetSpec, ListOptions{Ordering: "color; DROP TABLE widgets"}, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bolt", "Anchor", "Cog"}, names(out))
}

func TestList_Filters(t *testing.T) {
	db := setupDB(t)

	var out []widget
	meta, err := List(db, widgetSpec, ListOptions{Filters: map[string]string{"owner_id": "1", "active": "true", "unknown": "x"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Total)
	assert.Equal(t, []string{"Bolt"}, names(out))

	_, err = List(db, widgetSpec, ListOptions{Filters: map[string]string{"owner_id": "abc"}}, &out)
	var filterErr *FilterError
	require.ErrorAs(t, err, &filterErr)
	assert.Equal(t, "owner_id", filterErr.Field)
}

func TestParseListOptions(t *testing.T) {
	app := fiber.New()

	var got ListOptions
	app.Get("/", func(c *fiber.Ctx) error {
		got = ParseListOptions(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest("GET", "/?page=0&limit=500&search=%20go%20&ordering=-name&owner_id=3", nil))
	require.NoError(t, err)

	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 100, got.Limit)
	assert.Equal(t, "go", got.Search)
	assert.Equal(t, "-name", got.Ordering)
	assert.Equal(t, map[string]string{"owner_id": "3"}, got.Filters)
}
