package Protocol

// EventType is one of the fixed custody-transfer checkpoints in the
// sealed-pack delivery protocol.
type EventType string

const (
	PickupPoliceStation  EventType = "PICKUP_POLICE_STATION"
	ArrivalExamCenter    EventType = "ARRIVAL_EXAM_CENTER"
	OpeningSeal          EventType = "OPENING_SEAL"
	SealingAnswerSheets  EventType = "SEALING_ANSWER_SHEETS"
	SubmissionPostOffice EventType = "SUBMISSION_POST_OFFICE"
)

// SequenceComplete is returned by NextExpected once every step of the
// applicable order has been recorded.
const SequenceComplete EventType = "COMPLETE"

// fullOrder is the single source of truth for the delivery protocol.
// Clients derive their display purely from NextExpected and must never
// re-encode this list.
var fullOrder = []EventType{
	PickupPoliceStation,
	ArrivalExamCenter,
	OpeningSeal,
	SealingAnswerSheets,
	SubmissionPostOffice,
}

// The afternoon run of a double shift starts at the exam center: pickup and
// arrival were already recorded during the morning run.
var afternoonOrder = fullOrder[2:]

// Order returns the applicable step order for the shift.
func Order(afternoonShift bool) []EventType {
	if afternoonShift {
		return afternoonOrder
	}
	return fullOrder
}

// NextExpected returns the first step of the applicable order that is not in
// completed, or SequenceComplete when every step has been recorded.
func NextExpected(completed map[EventType]bool, afternoonShift bool) EventType {
	for _, step := range Order(afternoonShift) {
		if !completed[step] {
			return step
		}
	}
	return SequenceComplete
}

// IsAllowed reports whether t is the next expected step. This is the single
// authority for accepting or rejecting an incoming event.
func IsAllowed(t EventType, completed map[EventType]bool, afternoonShift bool) bool {
	return NextExpected(completed, afternoonShift) == t
}

// FinalStep returns the step that completes a delivery regardless of shift.
func FinalStep() EventType {
	return fullOrder[len(fullOrder)-1]
}

// ParseEventType validates a client-supplied event type string.
func ParseEventType(s string) (EventType, bool) {
	for _, step := range fullOrder {
		if s == string(step) {
			return step, true
		}
	}
	return "", false
}
