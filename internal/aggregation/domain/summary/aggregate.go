package summary

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	consumption "classroom-energy-aggregator/internal/consumption/domain"
)

// Aggregate groups readings by classroom and hour bucket and emits one row per group.
// Rows are ordered by classroom id, then hour. Empty input yields nil.
func Aggregate(readings []consumption.Reading) []Row {
	groups := Group(readings)
	if len(groups) == 0 {
		return nil
	}

	keys := make([]Key, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sortKeys(keys)

	rows := make([]Row, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, NewRow(key, Compute(groups[key])))
	}
	return rows
}

// Group buckets consumption values by classroom and hour.
func Group(readings []consumption.Reading) map[Key][]float64 {
	if len(readings) == 0 {
		return nil
	}
	groups := make(map[Key][]float64)
	for _, reading := range readings {
		key := Key{ClassroomID: reading.ClassroomID, Hour: HourBucket(reading.At)}
		groups[key] = append(groups[key], reading.Consumption)
	}
	return groups
}

// Compute returns mean, extrema and sample standard deviation (n-1 denominator).
// Std is 0 for fewer than two values, where the sample variance is undefined.
func Compute(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	stats := Stats{
		Count: len(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
	}
	if len(values) < 2 {
		stats.Avg = values[0]
		return stats
	}

	mean, std := stat.MeanStdDev(values, nil)
	// floating point summation can push the mean a hair outside the extrema
	stats.Avg = math.Min(math.Max(mean, stats.Min), stats.Max)
	if !math.IsNaN(std) {
		stats.Std = std
	}
	return stats
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ClassroomID != keys[j].ClassroomID {
			return keys[i].ClassroomID < keys[j].ClassroomID
		}
		return keys[i].Hour.Before(keys[j].Hour)
	})
}
