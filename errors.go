package oracle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput reports malformed or out-of-range casting input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDataIntegrity reports a lookup miss in the static hexagram data.
	// It never comes from user input.
	ErrDataIntegrity = errors.New("hexagram data integrity")
	// ErrQuotaExceeded is the reason attached to a denied Decision.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}
