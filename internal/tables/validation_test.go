package tables

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidateTableCreate(t *testing.T) {
	tests := []struct {
		name       string
		req        TableCreateRequest
		wantErrors int
	}{
		{
			name:       "valid",
			req:        TableCreateRequest{Number: "T1", Capacity: 4},
			wantErrors: 0,
		},
		{
			name:       "validDisabled",
			req:        TableCreateRequest{Number: "T1", Capacity: 4, Status: disabled},
			wantErrors: 0,
		},
		{
			name:       "missingNumber",
			req:        TableCreateRequest{Number: "  ", Capacity: 4},
			wantErrors: 1,
		},
		{
			name:       "numberTooLong",
			req:        TableCreateRequest{Number: strings.Repeat("x", 33), Capacity: 4},
			wantErrors: 1,
		},
		{
			name:       "zeroCapacity",
			req:        TableCreateRequest{Number: "T1"},
			wantErrors: 1,
		},
		{
			name:       "coordinatorStatus",
			req:        TableCreateRequest{Number: "T1", Capacity: 2, Status: reserved},
			wantErrors: 1,
		},
		{
			name:       "everythingWrong",
			req:        TableCreateRequest{Capacity: -1, Sort: -1, Status: occupied},
			wantErrors: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateTableCreate(context.Background(), tt.req)
			if len(errs) != tt.wantErrors {
				t.Errorf("ValidateTableCreate() errors = %v, want %d", errs, tt.wantErrors)
			}
		})
	}
}

func TestValidateTableUpdate(t *testing.T) {
	negative := -1
	id := uuid.MustParse(tableA)

	tests := []struct {
		name       string
		id         uuid.UUID
		req        TableUpdateRequest
		wantErrors int
	}{
		{name: "empty", id: id, wantErrors: 0},
		{name: "nilID", id: uuid.Nil, wantErrors: 1},
		{name: "negativeSort", id: id, req: TableUpdateRequest{Sort: &negative}, wantErrors: 1},
		{name: "negativeCapacity", id: id, req: TableUpdateRequest{Capacity: -2}, wantErrors: 1},
		{name: "occupiedStatus", id: id, req: TableUpdateRequest{Status: occupied}, wantErrors: 1},
		{name: "disable", id: id, req: TableUpdateRequest{Status: disabled}, wantErrors: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateTableUpdate(context.Background(), tt.id, tt.req)
			if len(errs) != tt.wantErrors {
				t.Errorf("ValidateTableUpdate() errors = %v, want %d", errs, tt.wantErrors)
			}
		})
	}
}
