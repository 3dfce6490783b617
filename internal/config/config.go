// Package config reads the engine's runtime configuration: a raw-JSON-map
// ReadConfig layered underneath a typed Options struct carrying the
// engine's configurable constants (day-count default, business-day mode,
// rate/money precision, worker pool size, NPA/SMA boundaries).
package config

import (
	"encoding/json"
	"os"

	"github.com/losplatform/engine/calendar"
	"github.com/losplatform/engine/daycount"
	"github.com/losplatform/engine/delinquency"
)

// Options is the engine's resolved runtime configuration.
type Options struct {
	DayCountDefault daycount.Convention
	BusinessDayMode calendar.AdjustMode

	MoneyPrecision int32
	RatePrecision  int32

	WorkerPoolSize int

	Boundaries delinquency.Boundaries

	LogDir string
}

// DefaultOptions returns the engine's built-in default configuration.
func DefaultOptions() Options {
	return Options{
		DayCountDefault: daycount.Actual365,
		BusinessDayMode: calendar.ModifiedFollowing,
		MoneyPrecision:  2,
		RatePrecision:   10,
		WorkerPoolSize:  8,
		Boundaries:      delinquency.DefaultBoundaries,
		LogDir:          "./logs",
	}
}

// ReadConfig reads a JSON config file: OCP_ENV unset means look in the
// working directory, set means look in CONFIG_PATH. Returns rather than
// panics on a missing file, since a missing override file is a valid
// "use the defaults" state rather than a fatal condition.
func ReadConfig() (map[string]interface{}, error) {
	ocpEnv := os.Getenv("OCP_ENV")
	configPath := os.Getenv("CONFIG_PATH")

	path := "./config.json"
	if ocpEnv != "" {
		path = configPath + "config.json"
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]interface{}{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var raw map[string]interface{}
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Load resolves Options by starting from DefaultOptions and overlaying any
// keys present in the raw config map. Unrecognized or malformed keys are
// left at their default value — config.json is an operational override,
// not a schema the engine trusts blindly.
func Load() (Options, error) {
	opts := DefaultOptions()
	raw, err := ReadConfig()
	if err != nil {
		return opts, err
	}

	if v, ok := raw["day_count_default"].(string); ok {
		if conv, err := daycount.Parse(v); err == nil {
			opts.DayCountDefault = conv
		}
	}
	if v, ok := raw["business_day_mode"].(string); ok {
		if mode, err := calendar.ParseAdjustMode(v); err == nil {
			opts.BusinessDayMode = mode
		}
	}
	if v, ok := raw["money_precision"].(float64); ok {
		opts.MoneyPrecision = int32(v)
	}
	if v, ok := raw["rate_precision"].(float64); ok {
		opts.RatePrecision = int32(v)
	}
	if v, ok := raw["worker_pool_size"].(float64); ok {
		opts.WorkerPoolSize = int(v)
	}
	if v, ok := raw["npa_trigger_dpd"].(float64); ok {
		opts.Boundaries.NPATriggerDPD = int(v)
	}
	if v, ok := raw["sma0_upper"].(float64); ok {
		opts.Boundaries.SMA0Upper = int(v)
	}
	if v, ok := raw["sma1_upper"].(float64); ok {
		opts.Boundaries.SMA1Upper = int(v)
	}
	if v, ok := raw["sma2_upper"].(float64); ok {
		opts.Boundaries.SMA2Upper = int(v)
	}
	if v, ok := raw["log_dir"].(string); ok {
		opts.LogDir = v
	}
	return opts, nil
}
