package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSubprotocol is returned for headers not of the form
// "<roleDigit><lowercaseEndpointName>".
var ErrInvalidSubprotocol = errors.New("protocol: invalid sub-protocol header")

// Subprotocol encodes the Sec-WebSocket-Protocol value that pre-selects a
// connect endpoint, e.g. "0publicconnect".
func Subprotocol(role Role, e Endpoint) string {
	return strconv.FormatUint(uint64(role), 10) + e.LowerName()
}

// ParseSubprotocol splits a header value into its role digit and lowercase
// endpoint name.
func ParseSubprotocol(s string) (Role, string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] < '0' || s[0] > '9' {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidSubprotocol, s)
	}
	name := s[1:]
	if name != strings.ToLower(name) {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidSubprotocol, s)
	}
	return Role(s[0] - '0'), name, nil
}

// LookupByLowerName finds an endpoint in table by its lowercase name.
func LookupByLowerName(table []Endpoint, name string) (Endpoint, bool) {
	for _, e := range table {
		if e.LowerName() == name {
			return e, true
		}
	}
	return Endpoint{}, false
}
