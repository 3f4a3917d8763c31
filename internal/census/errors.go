package census

import (
	"errors"
	"fmt"
)

// ErrInvalidGeography marks rejected geography inputs. These fail fast and
// are never retried.
var ErrInvalidGeography = errors.New("invalid geography")

// StatusError is an HTTP response with a non-2xx status. Statuses outside
// retryableStatuses are fatal and propagate on the first attempt.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote API returned HTTP %d for %s", e.Code, e.URL)
}

// retryableStatuses is the class of responses worth another attempt.
var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// IsFatalStatus reports whether err is an HTTP status error that must not
// be retried. Used by year probing to separate "vintage not published"
// from transport failures.
func IsFatalStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && !retryableStatuses[se.Code]
}
