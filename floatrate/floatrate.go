// Package floatrate resolves an effective floating interest rate from a
// benchmark curve, spread, and floor/cap, falling back to the latest
// strictly-earlier publication when the benchmark is unavailable on the
// as-of date.
package floatrate

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/losplatform/engine/errs"
	"github.com/losplatform/engine/money"
)

// Spec describes a floating-rate provenance: a benchmark id, spread, and
// optional floor/cap.
type Spec struct {
	Benchmark string
	Spread    money.Rate
	Floor     *money.Rate
	Cap       *money.Rate
}

// publication is one benchmark fixing on a given date.
type publication struct {
	Date time.Time
	Rate money.Rate
}

// curve holds one benchmark's chronologically-sorted publications.
type curve struct {
	benchmark    string
	publications []publication // sorted ascending by Date
}

// at returns the rate effective on asOf: the exact fixing if published, else
// the latest strictly-earlier publication. BenchmarkUnavailable if none.
func (c *curve) at(asOf time.Time) (money.Rate, error) {
	// publications is sorted ascending; find the last one <= asOf.
	idx := sort.Search(len(c.publications), func(i int) bool {
		return c.publications[i].Date.After(asOf)
	})
	if idx == 0 {
		return money.ZeroRate, errs.BenchmarkUnavailablef(c.benchmark,
			"no publication on or before %s", asOf.Format("2006-01-02"))
	}
	return c.publications[idx-1].Rate, nil
}

// Resolve computes the effective rate for spec at asOf: max(floor, min(cap,
// benchmark(as_of) + spread)).
func Resolve(spec Spec, benchmarkRate money.Rate) money.Rate {
	effective := money.NewRateFromDecimal(benchmarkRate.Decimal().Add(spec.Spread.Decimal()))
	return effective.Clamp(spec.Floor, spec.Cap)
}

// fixture is the on-disk shape a benchmark curve is seeded from.
type fixture struct {
	Benchmark string `yaml:"benchmark"`
	Fixings   []struct {
		Date string  `yaml:"date"`
		Rate float64 `yaml:"rate"`
	} `yaml:"fixings"`
}

// Cache is a process-local, read-mostly cache of benchmark curves, loaded
// from a YAML fixture file with an explicit refresh hook.
type Cache struct {
	path string

	mu     sync.RWMutex
	curves map[string]*curve
}

// NewCache constructs a Cache backed by the YAML fixture at path.
func NewCache(path string) *Cache {
	return &Cache{path: path, curves: map[string]*curve{}}
}

// Refresh reloads the fixture file, replacing the in-memory curve set
// atomically.
func (c *Cache) Refresh(ctx context.Context) error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return errs.Transientf("", err, "reading benchmark fixture %s", c.path)
	}
	var fixtures []fixture
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		return errs.InvalidInputf("", "parsing benchmark fixture %s: %v", c.path, err)
	}
	next := make(map[string]*curve, len(fixtures))
	for _, f := range fixtures {
		cv := &curve{benchmark: f.Benchmark}
		for _, fx := range f.Fixings {
			d, err := time.Parse("2006-01-02", fx.Date)
			if err != nil {
				return errs.InvalidInputf("", "parsing fixing date %q: %v", fx.Date, err)
			}
			cv.publications = append(cv.publications, publication{Date: d, Rate: money.NewRateFromFloat(fx.Rate)})
		}
		sort.Slice(cv.publications, func(i, j int) bool { return cv.publications[i].Date.Before(cv.publications[j].Date) })
		next[f.Benchmark] = cv
	}
	c.mu.Lock()
	c.curves = next
	c.mu.Unlock()
	return nil
}

// SeedFixings installs fixings for a benchmark directly, bypassing the file
// loader — used by tests and by callers sourcing curves from a database.
func (c *Cache) SeedFixings(benchmark string, fixings map[time.Time]money.Rate) {
	cv := &curve{benchmark: benchmark}
	for d, r := range fixings {
		cv.publications = append(cv.publications, publication{Date: d, Rate: r})
	}
	sort.Slice(cv.publications, func(i, j int) bool { return cv.publications[i].Date.Before(cv.publications[j].Date) })
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.curves == nil {
		c.curves = map[string]*curve{}
	}
	c.curves[benchmark] = cv
}

// EffectiveRate resolves spec's effective rate as of asOf, using the cached
// benchmark curve and falling back to the latest strictly-earlier fixing.
func (c *Cache) EffectiveRate(spec Spec, asOf time.Time) (money.Rate, error) {
	c.mu.RLock()
	cv, ok := c.curves[spec.Benchmark]
	c.mu.RUnlock()
	if !ok {
		return money.ZeroRate, errs.BenchmarkUnavailablef(spec.Benchmark, "benchmark %q not loaded", spec.Benchmark)
	}
	benchmarkRate, err := cv.at(asOf)
	if err != nil {
		return money.ZeroRate, err
	}
	return Resolve(spec, benchmarkRate), nil
}
