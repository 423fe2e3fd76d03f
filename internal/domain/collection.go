package domain

// Collection is an insertion-ordered snapshot of one kind's items. All
// reductions are recomputed on every call.
type Collection []MediaItem

func (c Collection) HasItems() bool {
	return len(c) > 0
}

// HasUnconverted reports whether any item has not reached done.
func (c Collection) HasUnconverted() bool {
	for _, item := range c {
		if item.Status != ItemStatusDone {
			return true
		}
	}
	return false
}

func (c Collection) AnyConverting() bool {
	for _, item := range c {
		if item.Status == ItemStatusConverting {
			return true
		}
	}
	return false
}

func (c Collection) TotalOriginalSize() int64 {
	var total int64
	for _, item := range c {
		total += item.OriginalSize
	}
	return total
}

func (c Collection) TotalConvertedSize() int64 {
	var total int64
	for _, item := range c {
		if item.Status == ItemStatusDone {
			total += item.OutputSize
		}
	}
	return total
}

// CountByStatus tallies items per status.
func (c Collection) CountByStatus() map[ItemStatus]int {
	counts := make(map[ItemStatus]int)
	for _, item := range c {
		counts[item.Status]++
	}
	return counts
}

type Summary struct {
	Kind               MediaType          `json:"kind"`
	Items              int                `json:"items"`
	HasItems           bool               `json:"has_items"`
	HasUnconverted     bool               `json:"has_unconverted"`
	Converting         bool               `json:"converting"`
	TotalOriginalSize  int64              `json:"total_original_size"`
	TotalConvertedSize int64              `json:"total_converted_size"`
	ByStatus           map[ItemStatus]int `json:"by_status"`
}

func (c Collection) Summarize(kind MediaType) Summary {
	return Summary{
		Kind:               kind,
		Items:              len(c),
		HasItems:           c.HasItems(),
		HasUnconverted:     c.HasUnconverted(),
		Converting:         c.AnyConverting(),
		TotalOriginalSize:  c.TotalOriginalSize(),
		TotalConvertedSize: c.TotalConvertedSize(),
		ByStatus:           c.CountByStatus(),
	}
}
