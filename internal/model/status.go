package model

// EventStatus is the lifecycle state of a scheduled event row.
type EventStatus string

const (
	StatusScheduled EventStatus = "scheduled"
	StatusLocked    EventStatus = "locked"
	StatusDelivered EventStatus = "delivered"
	StatusError     EventStatus = "error"
	StatusDead      EventStatus = "dead"
)

func (s EventStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transitions are allowed from s.
func (s EventStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusError || s == StatusDead
}

type statusTransition struct {
	from EventStatus
	to   EventStatus
}

var validTransitions = []statusTransition{
	{from: StatusScheduled, to: StatusLocked},
	{from: StatusLocked, to: StatusDelivered},
	{from: StatusLocked, to: StatusError},
	{from: StatusLocked, to: StatusDead},
	{from: StatusLocked, to: StatusScheduled},
}

// ValidTransition reports whether the lifecycle permits moving from one
// status to another. Locked back to scheduled is the retry/unlock path.
func ValidTransition(from, to EventStatus) bool {
	for _, t := range validTransitions {
		if t.from == from && t.to == to {
			return true
		}
	}
	return false
}

// EventClass distinguishes the two scheduled-event tables.
type EventClass string

const (
	ClassCron   EventClass = "cron"
	ClassOneOff EventClass = "one_off"
)
