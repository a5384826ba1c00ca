package track

import "errors"

// Standard errors returned by the track package.
var (
	// ErrNodeNotFound indicates the node id is unknown or was removed.
	ErrNodeNotFound = errors.New("node not found")

	// ErrCoasterNotFound indicates no coaster has the given name.
	ErrCoasterNotFound = errors.New("coaster not found")

	// ErrCoasterExists indicates the coaster name is already taken in this world.
	ErrCoasterExists = errors.New("coaster already exists")

	// ErrInvalidName indicates an empty coaster name.
	ErrInvalidName = errors.New("invalid coaster name")

	// ErrSelfConnection indicates an attempt to connect a node to itself.
	ErrSelfConnection = errors.New("cannot connect node to itself")

	// ErrNotJunction indicates the node has no alternate branches to switch to.
	ErrNotJunction = errors.New("node is not a junction")
)
