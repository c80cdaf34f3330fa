package order

import (
	"errors"
	"strings"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAddressNotFound   = errors.New("address not found")
	ErrOutOfStock        = errors.New("item out of stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// OutOfStockError names the products that cannot be fulfilled
type OutOfStockError struct {
	Products []string
}

func (e *OutOfStockError) Error() string {
	return ErrOutOfStock.Error() + ": " + strings.Join(e.Products, ", ")
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}
