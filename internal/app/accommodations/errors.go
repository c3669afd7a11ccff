package accommodations

import "fmt"

// Error is an application-layer error carrying the HTTP status and a stable
// machine-readable code for clients.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
