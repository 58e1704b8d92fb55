package request

import "errors"

// ErrInternalServer is the generic message body for a 500 response.
var ErrInternalServer = errors.New("internal server error")
