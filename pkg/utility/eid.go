package utility

import (
	"fmt"

	"github.com/google/uuid"
)

// ExecutionID identifies one engine run. Version 7 ids sort by creation time, so ledger rows
// ordered by id are ordered by start.
type ExecutionID = uuid.UUID

func NewExecutionID() ExecutionID {
	return uuid.Must(uuid.NewV7())
}

func ParseExecutionID(s string) (ExecutionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid execution id %q: %w", s, err)
	}
	return id, nil
}
