package transport

import "encoding/json"

// Response statuses. Partial marks a request whose primary effect succeeded while a
// follow-up step (such as the deletion audit) did not.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Envelope wraps every API response.
type Envelope struct {
	Status   string      `json:"status"`
	Code     string      `json:"code,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Error    *ErrorBody  `json:"error,omitempty"`
	Warnings []ErrorBody `json:"warnings,omitempty"`
	Meta     interface{} `json:"meta,omitempty"`
}

// ErrorBody is a coded failure. It is the error of an error envelope and each warning
// of a partial one.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: StatusSuccess,
		Data:   data,
		Meta:   meta,
	}
}

// NewPartial returns a success envelope carrying warnings. Without warnings it is a
// plain success.
func NewPartial(data interface{}, warnings ...ErrorBody) Envelope {
	env := NewSuccess(data, nil)
	if len(warnings) > 0 {
		env.Status = StatusPartial
		env.Warnings = warnings
	}
	return env
}

func NewError(code, message string, meta interface{}) Envelope {
	return Envelope{
		Status: StatusError,
		Code:   code,
		Error:  &ErrorBody{Code: code, Message: message},
		Meta:   meta,
	}
}

// String returns the JSON form for log fields.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
