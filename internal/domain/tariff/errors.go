package tariff

import "errors"

var (
	ErrTariffNotFound = errors.New("tariff not found")
	ErrSameTariff     = errors.New("tariff already selected")
	ErrNoBusiness     = errors.New("business not found")
)
