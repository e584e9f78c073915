package translate

import "fmt"

// UnsupportedSchemaError is returned when a wrapper is
// created over a reader whose schema it cannot decorate.
type UnsupportedSchemaError struct {
	Wrapper string
	Parts   int
}

// Error returns a message describing the schema.
func (u *UnsupportedSchemaError) Error() string {
	return fmt.Sprintf("%s: readers with %d instance parts are not supported (want 1 to %d)",
		u.Wrapper, u.Parts, MaxInstanceParts)
}
