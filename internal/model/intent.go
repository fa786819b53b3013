package model

// Intent is the normalized action a user or the scheduler requests. It is a
// closed set: the resolver switches over it exhaustively and rejects anything
// it does not know.
type Intent int

const (
	IntentStatusQuery Intent = iota
	IntentMarkHome
	IntentMarkOffice
	IntentMarkExternal
	IntentMarkNotWorking
)

func (i Intent) String() string {
	switch i {
	case IntentStatusQuery:
		return "status"
	case IntentMarkHome:
		return "mark_home"
	case IntentMarkOffice:
		return "mark_office"
	case IntentMarkExternal:
		return "mark_external"
	case IntentMarkNotWorking:
		return "mark_not_working"
	}
	return "unknown"
}
