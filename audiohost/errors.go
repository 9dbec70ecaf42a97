package audiohost

import "errors"

var errClosed = errors.New("audiohost: device closed")
