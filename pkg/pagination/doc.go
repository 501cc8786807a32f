// Package pagination holds the page state of the post listing and the pure
// transitions over it.
//
// The listing API reports the total number of posts via X-Total-Count; the
// number of pages follows from the fixed page size:
//
//	state := pagination.New(10)
//	state = pagination.WithTotal(state, 95) // TotalPages == 10
//	state, ok := pagination.Apply(state, pagination.Next)
//	controls := pagination.ControlsFor(state)
//
// Transitions never mutate their input. Next is rejected until the total is
// known and on the last page; Previous is rejected on page 1.
package pagination
