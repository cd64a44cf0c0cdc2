package order

type SubmitOrderRequest struct {
	UserID     string `json:"user_id"`
	DiningType string `json:"dining_type"`
	TableID    string `json:"table_id,omitempty"`
	AddressID  string `json:"address_id,omitempty"`
	Remark     string `json:"remark,omitempty"`
}

type RejectOrderRequest struct {
	Reason string `json:"reason"`
}

type CancelOrderRequest struct {
	Reason  string `json:"reason,omitempty"`
	By      string `json:"by"`
	ActorID string `json:"actor_id,omitempty"`
}

type ReorderRequest struct {
	UserID string `json:"user_id"`
}

type CartItemsRequest struct {
	Items []Item `json:"items"`
}

type AddressCreateRequest struct {
	UserID    string `json:"user_id"`
	Consignee string `json:"consignee"`
	Phone     string `json:"phone"`
	Detail    string `json:"detail"`
	Label     string `json:"label,omitempty"`
}
