package offer

import "errors"

var (
	ErrNotFound       = errors.New("offer not found")
	ErrDuplicateOffer = errors.New("business already responded to this purchase request")
	ErrNotOwner       = errors.New("offer belongs to another business")
)
