package api

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message or code
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CircleMembersResponse is used for GET /circles/:circleId/members. Only
// anonymous participant IDs leave the backend; there is nothing else to show.
type CircleMembersResponse struct {
	CircleID     string   `json:"circleId"`
	Day          int      `json:"day"`
	Participants []string `json:"participants"`
}
