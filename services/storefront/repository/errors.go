package repository

import "errors"

var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("record already exists")
	ErrInProgress = errors.New("request with this idempotency key is in progress")
	ErrOutOfStock = errors.New("insufficient stock")
	ErrClaimed    = errors.New("payment already paid for an order")
)
