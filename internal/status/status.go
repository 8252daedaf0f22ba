package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an application failure.
type Code int

const (
	Ok Code = iota
	InvalidUri
	InvalidImage
	ImageNotReadable
	ImageTooLarge
	LibvipsError
	UnsupportedSaver
	Unknown
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "Ok"
	case InvalidUri:
		return "InvalidUri"
	case InvalidImage:
		return "InvalidImage"
	case ImageNotReadable:
		return "ImageNotReadable"
	case ImageTooLarge:
		return "ImageTooLarge"
	case LibvipsError:
		return "LibvipsError"
	case UnsupportedSaver:
		return "UnsupportedSaver"
	default:
		return "Unknown"
	}
}

// Cause tells where a failure originated.
type Cause int

const (
	Application Cause = iota
	Upstream
	Internal
)

func (c Cause) String() string {
	switch c {
	case Upstream:
		return "upstream"
	case Internal:
		return "internal"
	default:
		return "application"
	}
}

// GenericMessage is rendered for every 500 that is not caused upstream.
const GenericMessage = "Something's wrong! It looks as though we've broken something on our end. Please try again later."

// Status is the outcome of processing a request. Application statuses carry
// a Code, upstream and internal statuses carry an HTTP status code.
type Status struct {
	code    int
	message string
	cause   Cause
}

// OK is the successful status.
var OK = Status{code: int(Ok), message: "OK", cause: Application}

// New returns an application status.
func New(code Code, message string) Status {
	return Status{code: int(code), message: message, cause: Application}
}

// NewUpstream returns a status describing an origin failure with its HTTP code.
func NewUpstream(httpCode int, message string) Status {
	return Status{code: httpCode, message: message, cause: Upstream}
}

// NewInternal returns a status for a failure in the host around the processor.
func NewInternal(httpCode int, message string) Status {
	return Status{code: httpCode, message: message, cause: Internal}
}

func (s Status) Code() int           { return s.code }
func (s Status) Message() string     { return s.message }
func (s Status) Cause() Cause        { return s.cause }
func (s Status) AppCode() Code       { return Code(s.code) }
func (s Status) IsUpstream() bool    { return s.cause == Upstream }
func (s Status) IsApplication() bool { return s.cause == Application }

// Ok reports whether the status is a success.
func (s Status) Ok() bool {
	return s.code == int(Ok) || s.code == http.StatusOK
}

// HTTPCode maps the status to the HTTP response code.
func (s Status) HTTPCode() int {
	if s.cause != Application {
		return s.code
	}
	switch Code(s.code) {
	case Ok:
		return http.StatusOK
	case Unknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Text is the message shown to clients.
func (s Status) Text() string {
	code := s.HTTPCode()
	if s.cause == Upstream {
		return upstreamText(code, s.message)
	}
	if code == http.StatusInternalServerError {
		return GenericMessage
	}
	return s.message
}

func upstreamText(code int, message string) string {
	switch code {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return "The requested URL timed out."
	case http.StatusBadGateway:
		return "The hostname of the origin is unresolvable (DNS) or blocked by policy."
	case 310, http.StatusRequestEntityTooLarge:
		return message
	default:
		return fmt.Sprintf("The requested URL returned error: %d", code)
	}
}

type statusJSON struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON renders the status body returned to clients.
func (s Status) JSON() []byte {
	body := statusJSON{Status: "success", Code: http.StatusOK, Message: "OK"}
	if !s.Ok() {
		body = statusJSON{Status: "error", Code: s.HTTPCode(), Message: s.Text()}
	}
	// statusJSON contains only strings and ints
	out, _ := json.Marshal(body)
	return out
}

func (s Status) String() string {
	if s.cause == Application {
		return fmt.Sprintf("%s: %s", Code(s.code), s.message)
	}
	return fmt.Sprintf("%s %d: %s", s.cause, s.code, s.message)
}

// Error carries a classified Status through error returns.
type Error struct {
	Status Status
	Err    error
}

// Errorf builds an application error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{Status: New(code, err.Error()), Err: errors.Unwrap(err)}
}

// Wrap classifies err under code, keeping its text as the message.
func Wrap(code Code, err error) *Error {
	return &Error{Status: New(code, err.Error()), Err: err}
}

// WithMessage classifies err under code with a fixed client-facing message.
func WithMessage(code Code, message string, err error) *Error {
	return &Error{Status: New(code, message), Err: err}
}

func (e *Error) Error() string {
	return e.Status.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FromError extracts the Status carried by err, if any.
func FromError(err error) (Status, bool) {
	var statusErr *Error
	if errors.As(err, &statusErr) {
		return statusErr.Status, true
	}
	return Status{}, false
}
