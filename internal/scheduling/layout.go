package scheduling

import (
	"sort"
	"time"
)

// Calendar grid sizing. Pure geometry: the only requirement is that the
// row holding the busiest day of each week is tall enough to show all of
// that day's appointments.

// DayKey normalizes a timestamp to its calendar day in the time's location.
func DayKey(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// PartitionByDay groups appointments by calendar day, each day sorted by
// start time.
func PartitionByDay(appts []Appointment) map[time.Time][]Appointment {
	byDay := make(map[time.Time][]Appointment)
	for _, a := range appts {
		key := DayKey(a.Start)
		byDay[key] = append(byDay[key], a)
	}
	for _, day := range byDay {
		sort.Slice(day, func(i, j int) bool { return day[i].Start.Before(day[j].Start) })
	}
	return byDay
}

// GridLayout describes the computed row heights for a visible range.
type GridLayout struct {
	SlotHeightPx    int   `json:"slot_height_px"`
	MinVisibleSlots int   `json:"min_visible_slots"`
	RowHeightsPx    []int `json:"row_heights_px"`
}

// ComputeWeekRows sizes one row per 7-day week starting at rangeStart.
// Each row is max(busiest day in that week, minVisibleSlots)
// slots tall so no appointment is clipped.
func ComputeWeekRows(rangeStart time.Time, weeks int, appts []Appointment, slotHeightPx, minVisibleSlots int) GridLayout {
	if weeks < 1 {
		weeks = 1
	}
	if slotHeightPx < 1 {
		slotHeightPx = 1
	}
	if minVisibleSlots < 1 {
		minVisibleSlots = 1
	}

	byDay := PartitionByDay(appts)
	base := DayKey(rangeStart)

	heights := make([]int, weeks)
	for w := 0; w < weeks; w++ {
		maxCount := 0
		for d := 0; d < 7; d++ {
			day := base.AddDate(0, 0, w*7+d)
			if n := len(byDay[day]); n > maxCount {
				maxCount = n
			}
		}
		if maxCount < minVisibleSlots {
			maxCount = minVisibleSlots
		}
		heights[w] = maxCount * slotHeightPx
	}
	return GridLayout{
		SlotHeightPx:    slotHeightPx,
		MinVisibleSlots: minVisibleSlots,
		RowHeightsPx:    heights,
	}
}
