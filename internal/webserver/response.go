package webserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the uniform envelope wrapped around every API reply.
type Response struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
}

// PageResult is the paginated list container carried inside the envelope.
type PageResult struct {
	Data        interface{} `json:"data"`
	CurrentPage int         `json:"current_page"`
	PerPage     int         `json:"per_page"`
	Total       int64       `json:"total"`
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Data: data})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Data: data})
}

func Fail(c echo.Context, status int, code, message string, data interface{}) error {
	return c.JSON(status, Response{Data: data, Message: message, Code: code})
}
