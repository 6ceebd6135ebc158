package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes
const (
	PrefixCycle   = "cyc_"
	PrefixRequest = "req_"
)

// NewCycle generates a refresh cycle ID with cyc_ prefix
func NewCycle() string {
	return PrefixCycle + uuid.New().String()
}

// NewRequest generates an HTTP request ID with req_ prefix
func NewRequest() string {
	return PrefixRequest + uuid.New().String()
}

// IsCycle reports whether id was produced by NewCycle
func IsCycle(id string) bool {
	rest, ok := strings.CutPrefix(id, PrefixCycle)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
