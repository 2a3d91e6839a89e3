package model

// SubmissionResponse is the output payload returned by the submit handler.
type SubmissionResponse struct {
	Status     string              `json:"status"` // "ok" | "error"
	RunID      string              `json:"run_id,omitempty"`
	EventID    string              `json:"event_id,omitempty"`
	AddressID  string              `json:"address_id,omitempty"`
	BannerURL  string              `json:"banner_url,omitempty"`
	Tickets    map[string]string   `json:"tickets,omitempty"`
	Categories map[string]string   `json:"categories,omitempty"`
	Fields     map[string][]string `json:"fields,omitempty"`
	Coupons    map[string][]string `json:"coupons,omitempty"`
	Steps      []StepResult        `json:"steps,omitempty"`
	Error      *ErrorPayload       `json:"error,omitempty"`
}

// StepResult captures the outcome of a processing step.
type StepResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"` // "ok" | "error" | "skipped" | "canceled"
	DurationMS int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"` // optional, error kind
}

// ErrorPayload describes an error response.
type ErrorPayload struct {
	Kind    string   `json:"kind"`              // "ticket_create_failed", "timeout"
	Message string   `json:"message,omitempty"` // optional, human-readable error message
	Errors  []string `json:"errors,omitempty"`  // validation messages
}

// TicketResponse is the output payload of single ticket creation.
type TicketResponse struct {
	Status   string        `json:"status"`
	TicketID string        `json:"ticket_id,omitempty"`
	Error    *ErrorPayload `json:"error,omitempty"`
}
