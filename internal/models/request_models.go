package models

// JoinCircleRequest represents the request body for joining or creating a circle.
// The authenticated UID from the token is authoritative; the body is kept for
// compatibility with older clients that posted their userId explicitly.
type JoinCircleRequest struct {
	UserID string `json:"userId,omitempty"`
}

// CreateMessageRequest carries the metadata fields of a multipart message
// upload. The audio bytes travel in the "audio" form file part.
type CreateMessageRequest struct {
	SegmentIndex int    `form:"segmentIndex" json:"segmentIndex"`
	DurationMs   int64  `form:"durationMs" json:"durationMs"`
	FileName     string `form:"fileName,omitempty" json:"fileName,omitempty"`
}

// SubmitVoteRequest represents the request body for casting an end-of-cycle vote.
type SubmitVoteRequest struct {
	Choice       string `json:"choice" binding:"required"` // "stay", "break" or "emerge"
	EmergeTarget string `json:"emergeTarget,omitempty"`    // Required iff choice == "emerge"
}

// CreateReportRequest represents the request body for reporting a message or circle.
type CreateReportRequest struct {
	ReportType     string `json:"reportType" binding:"required"`
	CircleID       string `json:"circleId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	SegmentIndex   *int   `json:"segmentIndex,omitempty"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}
