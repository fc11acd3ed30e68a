package scheduling

import "time"

// DropTarget identifies a calendar cell a drag gesture lands on: a date,
// plus an explicit time slot in week/day views. Month-view cells carry no
// slot and reschedule the date only.
type DropTarget struct {
	Date time.Time  `json:"date"` // time-of-day component ignored
	Slot *TimeOfDay `json:"slot,omitempty"`
}

// TimeOfDay is a half-hour slot boundary within a day.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Place computes the new start/end for an appointment dropped on the
// target, always preserving the original duration. With an explicit slot
// the new start is that exact time on the target date; without one only
// the date changes and the original time-of-day is kept.
func Place(appt Appointment, target DropTarget) (start, end time.Time) {
	year, month, day := target.Date.Date()

	if target.Slot != nil {
		start = time.Date(year, month, day, target.Slot.Hour, target.Slot.Minute, 0, 0, appt.Start.Location())
	} else {
		hour, min, sec := appt.Start.Clock()
		start = time.Date(year, month, day, hour, min, sec, appt.Start.Nanosecond(), appt.Start.Location())
	}
	return start, start.Add(appt.Duration())
}

// Gesture thresholds shared with clients: a pointer move below the
// distance threshold, or a touch released before the hold delay (or that
// wandered past the jitter tolerance), is a click, not a drag.
const (
	DragDistanceThresholdPx = 5.0
	TouchHoldDelay          = 400 * time.Millisecond
	TouchJitterTolerancePx  = 8.0
)

// Gesture is the classification of a pointer/touch interaction.
type Gesture string

const (
	GestureClick Gesture = "click"
	GestureDrag  Gesture = "drag"
)

// ClassifyPointer classifies a mouse interaction by travel distance.
func ClassifyPointer(distancePx float64) Gesture {
	if distancePx > DragDistanceThresholdPx {
		return GestureDrag
	}
	return GestureClick
}

// ClassifyTouch classifies a touch interaction by hold time and jitter.
func ClassifyTouch(held time.Duration, jitterPx float64) Gesture {
	if held >= TouchHoldDelay && jitterPx <= TouchJitterTolerancePx {
		return GestureDrag
	}
	return GestureClick
}
