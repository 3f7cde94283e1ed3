package protocol

import "fmt"

// StatusCode is a result code sent by the relay server in the message field
// of bind, break and error envelopes.
type StatusCode string

const (
	StatusSuccess              StatusCode = "200"
	StatusClientDisconnected   StatusCode = "209"
	StatusInvalidClientID      StatusCode = "210"
	StatusSocketNotReady       StatusCode = "211"
	StatusIDAlreadyBound       StatusCode = "400"
	StatusTargetClientNotFound StatusCode = "401"
	StatusNotBoundRelationship StatusCode = "402"
	StatusInvalidJSONFormat    StatusCode = "403"
	StatusRecipientNotFound    StatusCode = "404"
	StatusMessageTooLong       StatusCode = "405"
	StatusServerError          StatusCode = "500"
)

var statusDescriptions = map[StatusCode]string{
	StatusSuccess:              "success",
	StatusClientDisconnected:   "peer client disconnected",
	StatusInvalidClientID:      "no valid client id in QR code",
	StatusSocketNotReady:       "connected but the server has not assigned an id",
	StatusIDAlreadyBound:       "id already bound to another client",
	StatusTargetClientNotFound: "target client not found",
	StatusNotBoundRelationship: "sender and recipient are not bound",
	StatusInvalidJSONFormat:    "message is not a valid JSON object",
	StatusRecipientNotFound:    "recipient not found (offline)",
	StatusMessageTooLong:       "message longer than 1950 characters",
	StatusServerError:          "internal server error",
}

// LookupStatus reports whether s is a known status code.
func LookupStatus(s string) (StatusCode, bool) {
	code := StatusCode(s)
	_, ok := statusDescriptions[code]
	return code, ok
}

// Description returns a short English description, or "" for unknown codes.
func (c StatusCode) Description() string {
	return statusDescriptions[c]
}

// RemoteError is an error reported by the peer through an error envelope.
type RemoteError struct {
	Code    StatusCode
	Message string
}

func (e *RemoteError) Error() string {
	if desc := e.Code.Description(); desc != "" {
		return fmt.Sprintf("remote error [%s] %s", e.Code, desc)
	}

	return "remote error: " + e.Message
}

// NewRemoteError builds a RemoteError, recognising status codes in message.
func NewRemoteError(message string) *RemoteError {
	e := &RemoteError{Message: message}
	if code, ok := LookupStatus(message); ok {
		e.Code = code
	}

	return e
}
