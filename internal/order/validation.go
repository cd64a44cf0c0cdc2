package order

import (
	"strings"

	"github.com/google/uuid"
)

const (
	maxRemarkLength = 200
	maxReasonLength = 200
)

func ValidateSubmit(req SubmitOrderRequest) (SubmitRequest, []string) {
	var errors []string
	out := SubmitRequest{
		DiningType: strings.TrimSpace(req.DiningType),
		Remark:     strings.TrimSpace(req.Remark),
	}

	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		errors = append(errors, "user_id must be a valid UUID")
	}
	out.UserID = userID

	if out.DiningType != DiningDelivery && out.DiningType != DiningDineIn {
		errors = append(errors, "dining_type must be delivery or dine_in")
	}

	if id, ok, msg := optionalID(req.TableID, "table_id"); msg != "" {
		errors = append(errors, msg)
	} else if ok && out.DiningType == DiningDineIn {
		out.TableID = &id
	} else if ok {
		errors = append(errors, "table_id is only allowed for dine_in orders")
	}

	if id, ok, msg := optionalID(req.AddressID, "address_id"); msg != "" {
		errors = append(errors, msg)
	} else if ok {
		out.AddressID = &id
	}

	if len(out.Remark) > maxRemarkLength {
		errors = append(errors, "remark is too long")
	}

	return out, errors
}

func ValidateCancel(req CancelOrderRequest) (CancelRequest, []string) {
	var errors []string
	out := CancelRequest{
		Reason: strings.TrimSpace(req.Reason),
		By:     strings.TrimSpace(req.By),
	}

	switch out.By {
	case CancelByStaff:
	case CancelByUser, "":
		out.By = CancelByUser
		actorID, err := uuid.Parse(strings.TrimSpace(req.ActorID))
		if err != nil {
			errors = append(errors, "actor_id must be a valid UUID for customer cancellations")
		}
		out.ActorID = actorID
	default:
		errors = append(errors, "by must be user or staff")
	}

	if len(out.Reason) > maxReasonLength {
		errors = append(errors, "reason is too long")
	}

	return out, errors
}

func ValidateCartItems(req CartItemsRequest) []string {
	var errors []string

	if len(req.Items) == 0 {
		errors = append(errors, "items are required")
	}

	for _, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" {
			errors = append(errors, "item name is required")
		}
		if item.Quantity <= 0 {
			errors = append(errors, "item quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			errors = append(errors, "item unit_price cannot be negative")
		}
	}

	return errors
}

func ValidateAddressCreate(req AddressCreateRequest) []string {
	var errors []string

	if _, err := uuid.Parse(strings.TrimSpace(req.UserID)); err != nil {
		errors = append(errors, "user_id must be a valid UUID")
	}
	if strings.TrimSpace(req.Consignee) == "" {
		errors = append(errors, "consignee is required")
	}
	if strings.TrimSpace(req.Phone) == "" {
		errors = append(errors, "phone is required")
	}
	if strings.TrimSpace(req.Detail) == "" {
		errors = append(errors, "detail is required")
	}

	return errors
}

func optionalID(value, field string) (uuid.UUID, bool, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil, false, ""
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false, field + " must be a valid UUID"
	}
	return id, true, ""
}
