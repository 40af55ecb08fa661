package compiler

import (
	"errors"
	"fmt"
)

var ErrEmptyScene = errors.New("compiler: scene has no objects")

// UnknownGeometryError is returned when an object references geometry that
// is not part of the scene geometry list.
type UnknownGeometryError struct {
	Object string
}

func (e *UnknownGeometryError) Error() string {
	return fmt.Sprintf("compiler: object %q references geometry that is not part of the scene", e.Object)
}
