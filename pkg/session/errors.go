package session

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is returned when an Init names a participant id that is
// already in the session. The Init is rejected and the snapshot is unchanged.
var ErrDuplicateID = errors.New("session: duplicate participant id")

// DuplicateIDError reports the id of a rejected Init.
type DuplicateIDError struct {
	ID uint32
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("session: duplicate participant id %d", e.ID)
}

// Is reports whether target is ErrDuplicateID.
func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}
