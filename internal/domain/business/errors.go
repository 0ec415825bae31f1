package business

import "errors"

var (
	ErrNotFound          = errors.New("business not found")
	ErrAlreadyBusiness   = errors.New("user already has an active business")
	ErrNoTariff          = errors.New("tariff not selected")
	ErrTooManyCarBrands  = errors.New("car brand selection exceeds tariff cap")
	ErrTooManyParts      = errors.New("common part selection exceeds tariff cap")
	ErrInvalidFilterMode = errors.New("invalid purchase request filter mode")
)
