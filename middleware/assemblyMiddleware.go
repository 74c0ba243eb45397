package middleware

import (
	"fmt"
	"net/http"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	assid "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"

	"github.com/labstack/echo"
)

// AssemblyIdKey holds the canonical assembly of a request in the echo context.
const AssemblyIdKey = "assemblyId"

/*
Echo middleware to ensure a valid `assemblyId` HTTP query parameter was provided.
Aliases (hg38, hg19, hg37) are accepted and the canonical id is stored in the
context under AssemblyIdKey. Only assemblies with a DBs tree can be merged, so
"Other" is rejected.
*/
func MandateAssemblyIdAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		assemblyIdQP := c.QueryParam("assemblyId")
		assemblyId := assid.CastToAssemblyId(assemblyIdQP)
		switch assemblyId {
		case assid.Unknown:
			return echo.NewHTTPError(http.StatusBadRequest, "Missing or unknown assemblyId!")
		case assid.Other:
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Unsupported assemblyId %s!", assemblyIdQP))
		}

		c.Set(AssemblyIdKey, assemblyId)
		return next(c)
	}
}

// AssemblyIdFrom returns the assembly stored by MandateAssemblyIdAttribute,
// or casts the query parameter on routes that do not mandate one.
func AssemblyIdFrom(c echo.Context) constants.AssemblyId {
	if id, ok := c.Get(AssemblyIdKey).(constants.AssemblyId); ok {
		return id
	}
	return assid.CastToAssemblyId(c.QueryParam("assemblyId"))
}
