package gateway

import "fmt"

// Reason classifies why a submission failed.
type Reason string

const (
	ReasonEncoding          Reason = "encoding"
	ReasonTransport         Reason = "transport"
	ReasonHTTPStatus        Reason = "http_status"
	ReasonRejected          Reason = "rejected"
	ReasonMalformedResponse Reason = "malformed_response"
	ReasonUnavailable       Reason = "unavailable"
)

// SubmissionError reports a failed submission. The cart that produced it is
// left untouched so the user can try again.
type SubmissionError struct {
	Reason     Reason
	StatusCode int
	// Message is the backend's own explanation, when it gave one.
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("submission failed (%s): %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("submission failed (%s): %v", e.Reason, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
