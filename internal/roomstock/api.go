package roomstock

// APIResponse models the top-level structure of the room-stock feed.
type APIResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int    `json:"page"`
		PageSize int    `json:"pageSize"`
		Total    int    `json:"total"`
		Items    []Item `json:"items"`
	} `json:"data"`
}

// Item is one room as described by the feed. Block and floor are optional and are
// parsed from the room number when missing; capacity defaults from the room type.
type Item struct {
	RoomNumber string `json:"roomNumber"`
	Capacity   int    `json:"capacity"`
	Block      string `json:"block"`
	Floor      string `json:"floor"`
	Type       string `json:"type"`
	Status     string `json:"status"`
}
