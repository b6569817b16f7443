package attr

import "math"

// Unset is the value of a cell that was never written.
const Unset = -1.0

// Stats holds the running statistics of a column. All fields are [Unset]
// while the column has no set values.
type Stats struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Total        float64 `json:"total"`
	VisibleMin   float64 `json:"visible_min"`
	VisibleMax   float64 `json:"visible_max"`
	VisibleTotal float64 `json:"visible_total"`

	// Count and VisibleCount are the numbers of set values behind the sums.
	Count        int `json:"count"`
	VisibleCount int `json:"visible_count"`
}

func unsetStats() Stats {
	return Stats{
		Min: Unset, Max: Unset, Total: Unset,
		VisibleMin: Unset, VisibleMax: Unset, VisibleTotal: Unset,
	}
}

// Column describes one attribute column.
type Column struct {
	Name    string `json:"name"`
	Formula string `json:"formula,omitempty"`
	Locked  bool   `json:"locked,omitempty"`
	Hidden  bool   `json:"hidden,omitempty"`
	Stats   Stats  `json:"stats"`

	stale bool
}

// Stale reports whether Stats may be wider than the true bounds.
func (c Column) Stale() bool { return c.stale }

func (c *Column) reset() {
	c.Stats = unsetStats()
	c.stale = false
}

// replace folds a single write of v over old into the statistics.
func (c *Column) replace(old, v float64, visible bool) {
	s := &c.Stats
	if old != Unset {
		s.Count--
		s.Total -= old
		if old <= s.Min || old >= s.Max {
			c.stale = true
		}
		if visible {
			s.VisibleCount--
			s.VisibleTotal -= old
			if old <= s.VisibleMin || old >= s.VisibleMax {
				c.stale = true
			}
		}
	}
	if v != Unset {
		if s.Count == 0 {
			s.Min, s.Max, s.Total = v, v, 0
		}
		s.Count++
		s.Total += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		if visible {
			if s.VisibleCount == 0 {
				s.VisibleMin, s.VisibleMax, s.VisibleTotal = v, v, 0
			}
			s.VisibleCount++
			s.VisibleTotal += v
			s.VisibleMin = math.Min(s.VisibleMin, v)
			s.VisibleMax = math.Max(s.VisibleMax, v)
		}
	}
	if s.Count == 0 {
		*s = unsetStats()
		c.stale = false
	}
	if s.VisibleCount == 0 {
		s.VisibleMin, s.VisibleMax, s.VisibleTotal = Unset, Unset, Unset
	}
}
