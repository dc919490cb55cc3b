package orders

type Status string

const (
	StatusNew           Status = "new"
	StatusConfirmed     Status = "confirmed"
	StatusInPreparation Status = "in_preparation"
	StatusReady         Status = "ready"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
)

// happy-path order; admins may jump forward but never back
var statusRank = map[Status]int{
	StatusNew:           0,
	StatusConfirmed:     1,
	StatusInPreparation: 2,
	StatusReady:         3,
	StatusDelivered:     4,
}

// CanTransition: any forward jump along the happy path, plus cancelled from
// any non-terminal state. Delivered and cancelled are terminal.
func CanTransition(from, to Status) bool {
	if from == StatusCancelled || from == StatusDelivered {
		return false
	}
	if to == StatusCancelled {
		_, known := statusRank[from]
		return known
	}
	rf, ok1 := statusRank[from]
	rt, ok2 := statusRank[to]
	return ok1 && ok2 && rt > rf
}

func ValidStatus(s Status) bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}
