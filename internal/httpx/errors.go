// Package httpx holds the small request helpers shared by the handlers.
package httpx

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/database"
)

// StoreError turns a store error into the HTTP error of its taxonomy class.
// what names the entity, e.g. "branch".
func StoreError(err error, what string) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	switch database.Classify(err) {
	case database.KindNotFound:
		return fiber.NewError(fiber.StatusNotFound, what+" not found")
	case database.KindConflict:
		return fiber.NewError(fiber.StatusConflict, what+" conflicts with existing data")
	case database.KindValidation:
		return fiber.NewError(fiber.StatusBadRequest, what+" is invalid")
	}
	return err
}
