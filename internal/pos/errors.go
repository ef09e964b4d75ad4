package pos

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/httpx"
)

var (
	ErrEmptyOrder           = errors.New("order needs at least one item")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrTableNotFound        = errors.New("table not found")
	ErrMenuItemUnavailable  = errors.New("menu item is not available in this branch")
	ErrOrderNotFound        = errors.New("order not found")
	ErrSessionNotFound      = errors.New("dining session not found")
	ErrInvalidTransition    = errors.New("order is not in a state that allows this change")
	ErrSessionClosed        = errors.New("dining session is already closed")
	ErrSessionWithoutOrders = errors.New("dining session has no orders")
	ErrWaiterRequired       = errors.New("serving an order needs the waiter")
	ErrInvalidPaymentMethod = errors.New("payment method must be CASH or CARD")
)

// HTTPError maps lifecycle errors to the API taxonomy.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrEmptyOrder),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrMenuItemUnavailable),
		errors.Is(err, ErrWaiterRequired),
		errors.Is(err, ErrInvalidPaymentMethod),
		errors.Is(err, ErrTableNumber):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTableNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrSessionClosed),
		errors.Is(err, ErrSessionWithoutOrders),
		errors.Is(err, ErrTableNumberTaken),
		errors.Is(err, ErrTableInUse):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return httpx.StoreError(err, "record")
}
