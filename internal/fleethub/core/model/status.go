package model

// Status is the delivery state of a vehicle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusEnRoute   Status = "en_route"
	StatusDelivered Status = "delivered"
)

var statuses = []Status{StatusIdle, StatusEnRoute, StatusDelivered}

// Statuses returns every valid status in declaration order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus reports whether s names a valid status.
func ParseStatus(s string) (Status, bool) {
	for _, st := range statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsValid reports whether s is one of the enumerated statuses.
func (s Status) IsValid() bool {
	_, ok := ParseStatus(string(s))
	return ok
}

func (s Status) String() string { return string(s) }
