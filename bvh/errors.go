package bvh

import (
	"github.com/pkg/errors"
)

var (
	// ErrDuplicateTriangleID is returned when a triangle id is registered twice.
	ErrDuplicateTriangleID = errors.New("duplicate triangle id")
	// ErrUnknownTriangle is returned when a triangle id is not registered.
	ErrUnknownTriangle = errors.New("unknown triangle id")
	// ErrUnknownVertex is returned when a vertex is neither cached nor known to the geometry source.
	ErrUnknownVertex = errors.New("unknown vertex")
	// ErrInvalidTriangleID is returned for negative triangle ids.
	ErrInvalidTriangleID = errors.New("invalid triangle id")
	// ErrDestroyed is returned by every call on a destroyed index.
	ErrDestroyed = errors.New("index has been destroyed")
	// ErrInvalidRay is returned for rays with a zero or non-finite direction.
	ErrInvalidRay = errors.New("ray direction must be finite and non-zero")
)

func newDuplicateTriangleError(id TriangleID) error {
	return errors.Wrapf(ErrDuplicateTriangleID, "triangle %d", id)
}

func newUnknownTriangleError(id TriangleID) error {
	return errors.Wrapf(ErrUnknownTriangle, "triangle %d", id)
}

func newUnknownVertexError(id VertexID) error {
	return errors.Wrapf(ErrUnknownVertex, "vertex %d", id)
}
