package tables

type TableCreateRequest struct {
	Number   string `json:"number"`
	Capacity int    `json:"capacity"`
	Sort     int    `json:"sort,omitempty"`
	Status   string `json:"status,omitempty"`
	By       string `json:"by,omitempty"`
}

type TableUpdateRequest struct {
	Number   string `json:"number,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
	Sort     *int   `json:"sort,omitempty"`
	Status   string `json:"status,omitempty"`
	By       string `json:"by,omitempty"`
}

type TableReleaseRequest struct {
	By     string `json:"by"`
	Reason string `json:"reason,omitempty"`
}
