package web

import (
	"net/http"

	"github.com/adonese/signup/apperr"
	"github.com/adonese/signup/validations"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

func jsonResponse(c *fiber.Ctx, code int, payload interface{}) {
	if err, ok := payload.(error); ok {
		status := code
		if status == 0 {
			status = apperr.Status(err)
		}
		_ = c.Status(status).JSON(apperr.Payload(err))
		return
	}
	if code == 0 {
		code = http.StatusOK
	}
	_ = c.Status(code).JSON(payload)
}

func parseJSON(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return apperr.ErrEmptyBody
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return apperr.Wrap(err, apperr.ErrBadRequest, "malformed JSON body")
	}
	return nil
}

func bindJSON(c *fiber.Ctx, dst interface{}) error {
	if err := parseJSON(c, dst); err != nil {
		return err
	}
	if err := validations.ValidateStruct(dst); err != nil {
		fields := map[string]any{}
		for k, v := range validations.FieldErrors(err) {
			fields[k] = v
		}
		return apperr.Wrap(err, apperr.WithFields(apperr.ErrValidation, fields), "email and password are required")
	}
	return nil
}
