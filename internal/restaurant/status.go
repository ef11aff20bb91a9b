package restaurant

type Status string

const (
	StatusReceived  Status = "received"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var allowedTransitions = map[Status][]Status{
	StatusReceived:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether an order in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return false
	}
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SalesStatuses are the statuses whose totals count as revenue.
var SalesStatuses = []Status{StatusConfirmed, StatusCompleted}

func IsSalesStatus(s Status) bool {
	for _, v := range SalesStatuses {
		if v == s {
			return true
		}
	}
	return false
}
