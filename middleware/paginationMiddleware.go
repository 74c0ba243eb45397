package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"
)

const maxPageSize = 1000

/*
Echo middleware to ensure the optional `from` and `size` HTTP query parameters
are non-negative integers, size being capped
*/
func ValidateOptionalPagination(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if from := c.QueryParam("from"); len(from) > 0 {
			if v, err := strconv.Atoi(from); err != nil || v < 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid 'from' parameter!")
			}
		}
		if size := c.QueryParam("size"); len(size) > 0 {
			if v, err := strconv.Atoi(size); err != nil || v < 1 || v > maxPageSize {
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid 'size' parameter!")
			}
		}

		return next(c)
	}
}
