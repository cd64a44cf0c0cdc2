package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/appetiteclub/coordinator/internal/tables"
	"github.com/google/uuid"
)

var (
	ErrCartEmpty              = errors.New("cart is empty")
	ErrAddressNotFound        = errors.New("address not found")
	ErrTableRequired          = errors.New("dine-in orders require a table")
	ErrInvalidDiningType      = errors.New("invalid dining type")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidOrderState      = errors.New("invalid order state")
	ErrReconciliationRequired = errors.New("table reconciliation required")
	ErrDuplicateOrderNumber   = errors.New("order number already exists")
)

// InvalidStateError is returned when a transition is attempted from a status
// that does not allow it.
type InvalidStateError struct {
	OrderID  uuid.UUID
	Action   string
	Expected []string
	Actual   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: cannot %s order in status %s, expected %s",
		ErrInvalidOrderState.Error(), e.Action, e.Actual, strings.Join(e.Expected, " or "))
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidOrderState
}

// ReconciliationError reports a paid order whose table could not be
// occupied. The payment stands; the table needs a person.
type ReconciliationError struct {
	OrderID     uuid.UUID
	OrderNumber string
	TableID     uuid.UUID
	TableStatus string
	Err         error
}

func (e *ReconciliationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s for order %s: %s", ErrReconciliationRequired.Error(), e.OrderNumber, e.Err.Error())
	}
	return fmt.Sprintf("%s for order %s", ErrReconciliationRequired.Error(), e.OrderNumber)
}

func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliationRequired
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// IsBusinessError reports whether err is an expected outcome for the caller
// rather than a fault.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrCartEmpty,
		ErrAddressNotFound,
		ErrTableRequired,
		ErrInvalidDiningType,
		ErrOrderNotFound,
		ErrInvalidOrderState,
		ErrReconciliationRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return tables.IsBusinessError(err)
}
