package apperror

import "github.com/labstack/echo/v4"

// Write sends err as the error envelope with its catalog status.
func Write(c echo.Context, err error) error {
	e := From(err)
	return c.JSON(e.HTTPStatus, e.Body())
}

// OK sends payload merged with the NoError sentinel.
func OK(c echo.Context, payload echo.Map) error {
	body := NoError.Body()
	for k, v := range payload {
		body[k] = v
	}
	return c.JSON(NoError.HTTPStatus, body)
}
