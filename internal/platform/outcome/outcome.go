package outcome

import "net/http"

// Kind classifies a failed operation so transport layers can map it to a
// status code without inspecting message text.
type Kind string

const (
	KindNone            Kind = ""
	KindBadRequest      Kind = "bad_request"
	KindUnauthenticated Kind = "unauthenticated"
	KindSessionExpired  Kind = "session_expired"
	KindSessionRevoked  Kind = "session_revoked"
	KindRoleMismatch    Kind = "role_mismatch"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

// Result is the uniform return shape for service operations. A success
// carries Data; a failure carries a Kind and a caller-safe Message.
type Result struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Kind    Kind   `json:"-"`
}

// Success wraps data in a passing result.
func Success(data any) Result {
	return Result{OK: true, Data: data}
}

// Failure builds a failed result of the given kind. The message must be safe
// to show to the caller; internal detail belongs in logs.
func Failure(kind Kind, message string) Result {
	return Result{OK: false, Kind: kind, Message: message}
}

func BadRequest(message string) Result      { return Failure(KindBadRequest, message) }
func Unauthenticated(message string) Result { return Failure(KindUnauthenticated, message) }
func SessionExpired(message string) Result  { return Failure(KindSessionExpired, message) }
func SessionRevoked(message string) Result  { return Failure(KindSessionRevoked, message) }
func RoleMismatch(message string) Result    { return Failure(KindRoleMismatch, message) }
func NotFound(message string) Result        { return Failure(KindNotFound, message) }
func Conflict(message string) Result        { return Failure(KindConflict, message) }
func Internal(message string) Result        { return Failure(KindInternal, message) }

// HTTPStatus maps a result to the HTTP status code its kind implies.
func (r Result) HTTPStatus() int {
	if r.OK {
		return http.StatusOK
	}
	switch r.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthenticated, KindSessionExpired, KindSessionRevoked:
		return http.StatusUnauthorized
	case KindRoleMismatch:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
