package tables

import (
	"context"
	"strings"

	"github.com/appetiteclub/coordinator/pkg/enums/tablestatus"
	"github.com/google/uuid"
)

const maxTableNumberLength = 32

// Admins may only park a table as free or disabled; reserved and occupied
// belong to the coordinator.
var adminStatuses = []string{
	tablestatus.Statuses.Free.Code(),
	tablestatus.Statuses.Disabled.Code(),
}

func ValidateTableCreate(ctx context.Context, req TableCreateRequest) []string {
	var errors []string

	number := strings.TrimSpace(req.Number)
	if number == "" {
		errors = append(errors, "number is required")
	} else if len(number) > maxTableNumberLength {
		errors = append(errors, "number is too long")
	}

	if req.Capacity <= 0 {
		errors = append(errors, "capacity must be positive")
	}

	if req.Sort < 0 {
		errors = append(errors, "sort cannot be negative")
	}

	if req.Status != "" && !isAdminStatus(req.Status) {
		errors = append(errors, "status must be free or disabled")
	}

	return errors
}

func ValidateTableUpdate(ctx context.Context, id uuid.UUID, req TableUpdateRequest) []string {
	var errors []string

	if id == uuid.Nil {
		errors = append(errors, "invalid table id")
	}

	if len(strings.TrimSpace(req.Number)) > maxTableNumberLength {
		errors = append(errors, "number is too long")
	}

	if req.Capacity < 0 {
		errors = append(errors, "capacity cannot be negative")
	}

	if req.Sort != nil && *req.Sort < 0 {
		errors = append(errors, "sort cannot be negative")
	}

	if req.Status != "" && !isAdminStatus(req.Status) {
		errors = append(errors, "status must be free or disabled")
	}

	return errors
}

func isAdminStatus(status string) bool {
	for _, s := range adminStatuses {
		if status == s {
			return true
		}
	}
	return false
}
