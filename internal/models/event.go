package models

type SubmissionCreatedEvent struct {
	SubmissionID string `json:"submission_id"`
	FormID       string `json:"form_id"`
	StudentEmail string `json:"student_email"`
	Timestamp    int64  `json:"timestamp"`
}

type SubmissionsImportedEvent struct {
	FormID    string `json:"form_id"`
	Count     int    `json:"count"`
	Timestamp int64  `json:"timestamp"`
}
