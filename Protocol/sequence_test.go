package Protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func completedSet(types ...EventType) map[EventType]bool {
	set := make(map[EventType]bool)
	for _, t := range types {
		set[t] = true
	}
	return set
}

func TestNextExpectedFullOrder(t *testing.T) {
	tests := []struct {
		name      string
		completed map[EventType]bool
		want      EventType
	}{
		{"empty", completedSet(), PickupPoliceStation},
		{"after pickup", completedSet(PickupPoliceStation), ArrivalExamCenter},
		{"after arrival", completedSet(PickupPoliceStation, ArrivalExamCenter), OpeningSeal},
		{"after seal open", completedSet(PickupPoliceStation, ArrivalExamCenter, OpeningSeal), SealingAnswerSheets},
		{"before submission", completedSet(PickupPoliceStation, ArrivalExamCenter, OpeningSeal, SealingAnswerSheets), SubmissionPostOffice},
		{"all done", completedSet(PickupPoliceStation, ArrivalExamCenter, OpeningSeal, SealingAnswerSheets, SubmissionPostOffice), SequenceComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextExpected(tt.completed, false))
		})
	}
}

func TestNextExpectedAfternoonShift(t *testing.T) {
	// The afternoon run starts at the seal-opening step, not at the police station.
	assert.Equal(t, OpeningSeal, NextExpected(completedSet(), true))
	assert.Equal(t, SealingAnswerSheets, NextExpected(completedSet(OpeningSeal), true))
	assert.Equal(t, SubmissionPostOffice, NextExpected(completedSet(OpeningSeal, SealingAnswerSheets), true))
	assert.Equal(t, SequenceComplete, NextExpected(completedSet(OpeningSeal, SealingAnswerSheets, SubmissionPostOffice), true))
}

func TestIsAllowed(t *testing.T) {
	assert.True(t, IsAllowed(PickupPoliceStation, completedSet(), false))
	assert.False(t, IsAllowed(OpeningSeal, completedSet(), false))
	assert.False(t, IsAllowed(PickupPoliceStation, completedSet(PickupPoliceStation), false))
	assert.True(t, IsAllowed(OpeningSeal, completedSet(), true))
	assert.False(t, IsAllowed(PickupPoliceStation, completedSet(), true))
}

func TestOrderLengths(t *testing.T) {
	assert.Len(t, Order(false), 5)
	assert.Len(t, Order(true), 3)
	assert.Equal(t, SubmissionPostOffice, FinalStep())
}

func TestParseEventType(t *testing.T) {
	et, ok := ParseEventType("OPENING_SEAL")
	assert.True(t, ok)
	assert.Equal(t, OpeningSeal, et)

	_, ok = ParseEventType("COMPLETE")
	assert.False(t, ok)

	_, ok = ParseEventType("opening_seal")
	assert.False(t, ok)
}
