package tables

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrTableNotFound       = errors.New("table not found")
	ErrTableDisabled       = errors.New("table is disabled")
	ErrTableReserved       = errors.New("table is already reserved")
	ErrTableOccupied       = errors.New("table is occupied")
	ErrReservationConflict = errors.New("table no longer available")
	ErrTableInUse          = errors.New("table is in use by an active order")
	ErrDuplicateNumber     = errors.New("table number already exists")
)

// ReservationError reports a conditional table write that lost to another
// writer. Status is what a re-read observed afterwards; it is informative
// only, the failed write is the authority.
type ReservationError struct {
	TableID uuid.UUID
	Status  string
	Err     error
}

func (e *ReservationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", ErrReservationConflict.Error(), e.Err.Error())
	}
	return ErrReservationConflict.Error()
}

func (e *ReservationError) Is(target error) bool {
	return target == ErrReservationConflict
}

func (e *ReservationError) Unwrap() error {
	return e.Err
}

// IsBusinessError reports whether err is an expected table outcome rather
// than a storage or transport fault.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrTableNotFound,
		ErrTableDisabled,
		ErrTableReserved,
		ErrTableOccupied,
		ErrReservationConflict,
		ErrTableInUse,
		ErrDuplicateNumber,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
