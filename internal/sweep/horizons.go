package sweep

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"lookahead-backtest/internal/model"
)

// MaxHorizon bounds every parsed horizon: a leap year of quarter-hour intervals.
// Ranges are checked against it before they are expanded.
const MaxHorizon = 366 * 24 * 4

// ParseHorizons parses a comma separated horizon list. Each item is a single
// value ("24"), an inclusive range ("1-12") or a stepped range ("48:96:24").
// The result is sorted and deduplicated.
func ParseHorizons(s string) ([]int, error) {
	seen := map[int]bool{}
	var out []int
	add := func(h int) {
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}

	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		switch {
		case strings.Contains(item, ":"):
			parts := strings.Split(item, ":")
			if len(parts) != 3 {
				return nil, model.Invalid("horizons", fmt.Sprintf("%q: want from:to:step", item))
			}
			from, to, step, err := atoi3(parts[0], parts[1], parts[2])
			if err != nil {
				return nil, model.Invalid("horizons", fmt.Sprintf("%q: %v", item, err))
			}
			if step <= 0 || from > to {
				return nil, model.Invalid("horizons", fmt.Sprintf("%q: empty range", item))
			}
			if err := checkBounds(item, from, to); err != nil {
				return nil, err
			}
			for h := from; h <= to; h += step {
				add(h)
			}
		case strings.Contains(item, "-"):
			parts := strings.SplitN(item, "-", 2)
			from, to, _, err := atoi3(parts[0], parts[1], "1")
			if err != nil {
				return nil, model.Invalid("horizons", fmt.Sprintf("%q: %v", item, err))
			}
			if from > to {
				return nil, model.Invalid("horizons", fmt.Sprintf("%q: empty range", item))
			}
			if err := checkBounds(item, from, to); err != nil {
				return nil, err
			}
			for h := from; h <= to; h++ {
				add(h)
			}
		default:
			h, err := strconv.Atoi(item)
			if err != nil {
				return nil, model.Invalid("horizons", fmt.Sprintf("%q: %v", item, err))
			}
			if err := checkBounds(item, h, h); err != nil {
				return nil, err
			}
			add(h)
		}
	}

	if len(out) == 0 {
		return nil, model.Invalid("horizons", "no horizons given")
	}
	sort.Ints(out)
	return out, nil
}

func checkBounds(item string, from, to int) error {
	if from <= 0 {
		return model.Invalid("horizons", fmt.Sprintf("%q: %d must be > 0", item, from))
	}
	if to > MaxHorizon {
		return model.Invalid("horizons", fmt.Sprintf("%q: %d exceeds the maximum of %d", item, to, MaxHorizon))
	}
	return nil
}

func atoi3(a, b, c string) (int, int, int, error) {
	x, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, 0, err
	}
	y, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, 0, err
	}
	z, err := strconv.Atoi(strings.TrimSpace(c))
	if err != nil {
		return 0, 0, 0, err
	}
	return x, y, z, nil
}
