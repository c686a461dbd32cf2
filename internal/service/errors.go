package service

import "errors"

var (
	ErrInvalidAmount = errors.New("error invalid amount")
	ErrInvalidRate   = errors.New("error invalid rate")
)
