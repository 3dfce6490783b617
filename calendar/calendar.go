// Package calendar implements business-day adjustment modes and holiday
// lookup, backed by a read-mostly process-level cache with an explicit
// refresh hook.
package calendar

import (
	"context"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/losplatform/engine/errs"
)

// AdjustMode is a closed tagged variant for business-day adjustment.
type AdjustMode int

const (
	Following AdjustMode = iota
	Preceding
	ModifiedFollowing
	ModifiedPreceding
)

func (m AdjustMode) String() string {
	switch m {
	case Following:
		return "following"
	case Preceding:
		return "preceding"
	case ModifiedFollowing:
		return "modified_following"
	case ModifiedPreceding:
		return "modified_preceding"
	default:
		return "unknown"
	}
}

// ParseAdjustMode maps an external string code to an AdjustMode.
func ParseAdjustMode(code string) (AdjustMode, error) {
	switch code {
	case "following":
		return Following, nil
	case "preceding":
		return Preceding, nil
	case "modified_following":
		return ModifiedFollowing, nil
	case "modified_preceding":
		return ModifiedPreceding, nil
	default:
		return 0, errs.InvalidInputf("", "unknown business-day mode %q", code)
	}
}

// Calendar holds one business calendar's holiday set and weekly-off mask.
type Calendar struct {
	ID         string
	Holidays   map[string]bool // "YYYY-MM-DD" -> true
	WeeklyOffs map[time.Weekday]bool
}

// IsBusinessDay reports whether d is neither a weekly off nor a holiday.
func (c *Calendar) IsBusinessDay(d time.Time) bool {
	if c.WeeklyOffs[d.Weekday()] {
		return false
	}
	return !c.Holidays[d.Format("2006-01-02")]
}

// Adjust shifts a raw due date to a business day per mode. ModifiedFollowing
// shifts forward unless that crosses into the next calendar month, in which
// case it shifts backward instead; ModifiedPreceding mirrors that.
func (c *Calendar) Adjust(raw time.Time, mode AdjustMode) time.Time {
	if c.IsBusinessDay(raw) {
		return raw
	}
	switch mode {
	case Following:
		return c.shift(raw, 1)
	case Preceding:
		return c.shift(raw, -1)
	case ModifiedFollowing:
		candidate := c.shift(raw, 1)
		if candidate.Month() != raw.Month() {
			return c.shift(raw, -1)
		}
		return candidate
	case ModifiedPreceding:
		candidate := c.shift(raw, -1)
		if candidate.Month() != raw.Month() {
			return c.shift(raw, 1)
		}
		return candidate
	default:
		return raw
	}
}

func (c *Calendar) shift(d time.Time, step int) time.Time {
	cursor := d
	for !c.IsBusinessDay(cursor) {
		cursor = cursor.AddDate(0, 0, step)
	}
	return cursor
}

// fixture is the on-disk shape calendars are seeded from.
type fixture struct {
	ID         string   `yaml:"id"`
	Holidays   []string `yaml:"holidays"`
	WeeklyOffs []string `yaml:"weekly_offs"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

func fromFixture(f fixture) *Calendar {
	c := &Calendar{ID: f.ID, Holidays: map[string]bool{}, WeeklyOffs: map[time.Weekday]bool{}}
	for _, h := range f.Holidays {
		c.Holidays[h] = true
	}
	for _, w := range f.WeeklyOffs {
		if wd, ok := weekdayNames[w]; ok {
			c.WeeklyOffs[wd] = true
		}
	}
	return c
}

// Cache is a process-local, read-mostly cache of business calendars keyed
// by calendar id, loaded from a YAML fixture file and refreshable on
// demand via an explicit refresh hook. Loaded calendars do not expire on
// their own; they stay in place until the next Refresh or Seed.
type Cache struct {
	path string

	mu        sync.RWMutex
	calendars map[string]*Calendar
	loadedAt  time.Time
}

// NewCache constructs a Cache backed by the YAML fixture at path. The cache
// is empty until Refresh is called at least once.
func NewCache(path string) *Cache {
	return &Cache{path: path, calendars: map[string]*Calendar{}}
}

// Refresh reloads the fixture file, replacing the in-memory calendar set
// atomically. Safe to call concurrently with Get.
func (c *Cache) Refresh(ctx context.Context) error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return errs.Transientf("", err, "reading calendar fixture %s", c.path)
	}
	var fixtures []fixture
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		return errs.InvalidInputf("", "parsing calendar fixture %s: %v", c.path, err)
	}
	next := make(map[string]*Calendar, len(fixtures))
	for _, f := range fixtures {
		next[f.ID] = fromFixture(f)
	}
	c.mu.Lock()
	c.calendars = next
	c.loadedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// Get returns the calendar for id, or NotFound if it has not been loaded.
func (c *Cache) Get(id string) (*Calendar, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cal, ok := c.calendars[id]
	if !ok {
		return nil, errs.NotFoundf(id, "business calendar %q not loaded", id)
	}
	return cal, nil
}

// LoadedAt returns when the cache was last successfully refreshed.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Seed installs calendars directly, bypassing the file loader — used by
// tests and by callers that source calendars from a database rather than a
// fixture file.
func (c *Cache) Seed(calendars ...*Calendar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calendars == nil {
		c.calendars = map[string]*Calendar{}
	}
	for _, cal := range calendars {
		c.calendars[cal.ID] = cal
	}
	c.loadedAt = time.Now()
}
