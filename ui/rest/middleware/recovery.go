package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	pkgError "github.com/keyquest/wa-gateway/pkg/error"
	"github.com/keyquest/wa-gateway/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Recovery converts handler panics into the JSON error envelope. Typed
// errors keep their status code; anything else is a 500.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			err := recover()
			if err != nil {
				status := 500
				message := fmt.Sprintf("%v", err)

				logrus.Errorf("Panic recovered in middleware: %v", err)

				if typed, ok := err.(pkgError.GenericError); ok {
					status = typed.StatusCode()
					message = typed.Error()
				}

				_ = ctx.Status(status).JSON(utils.ResponseData{
					Success: false,
					Error:   message,
				})
			}
		}()

		return ctx.Next()
	}
}
