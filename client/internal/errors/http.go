package errors

// NewStatusError builds a classified error for a non-2xx response.
// 4xx client errors (except 408 and 429) are irrecoverable; 5xx and
// unexpected codes are recoverable.
func NewStatusError(op Op, resource string, statusCode int, body string) *StatusError {
	return &StatusError{
		Op:         op,
		Resource:   resource,
		StatusCode: statusCode,
		Body:       body,
		Category:   getHTTPErrorCategory(statusCode),
	}
}

// NewTransportError wraps a network-level failure.
func NewTransportError(op Op, resource string, err error) *TransportError {
	return &TransportError{Op: op, Resource: resource, Err: err}
}

// getHTTPErrorCategory maps HTTP status codes to error categories.
func getHTTPErrorCategory(statusCode int) ErrorCategory {
	switch {
	case statusCode >= 400 && statusCode < 500:
		switch statusCode {
		case 408, 429:
			return Recoverable
		default:
			return Irrecoverable
		}
	case statusCode >= 500 && statusCode < 600:
		return Recoverable
	default:
		return Recoverable
	}
}
