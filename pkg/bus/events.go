package bus

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/parity/pkg/utility"
)

type EventId uint8

const (
	SliceEvent EventId = iota
	SecuritiesChangedEvent
	OrderEvent
	AssignmentEvent
	EndEvent
)

func (id EventId) String() string {
	switch id {
	case SliceEvent:
		return "slice"
	case SecuritiesChangedEvent:
		return "securities_changed"
	case OrderEvent:
		return "order"
	case AssignmentEvent:
		return "assignment"
	case EndEvent:
		return "end"
	default:
		return fmt.Sprintf("event(%d)", uint8(id))
	}
}

// EndOfAlgorithm is posted once after the last data event.
type EndOfAlgorithm struct {
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
