package classifier

import "errors"

var (
	errNoProvider  = errors.New("classifier: no provider configured")
	errUnparseable = errors.New("classifier: reply contains no JSON object")
)
