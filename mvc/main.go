package mvc

import (
	"strconv"

	"github.com/znavezz/ASD-ADAR-Correction/contexts"
	"github.com/znavezz/ASD-ADAR-Correction/middleware"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/labstack/echo"
)

const defaultPageSize = 100

// RetrieveCommonElements pulls the client and the query parameters shared by
// the variant routes; pagination has already been validated by middleware.
func RetrieveCommonElements(c echo.Context) (*es7.Client, constants.AssemblyId, string, int, int) {
	mc := c.(*contexts.MergeContext)
	es := mc.Es7Client

	assemblyId := middleware.AssemblyIdFrom(c)

	source := c.QueryParam("source")

	from, size := 0, defaultPageSize
	if v, err := strconv.Atoi(c.QueryParam("from")); err == nil {
		from = v
	}
	if v, err := strconv.Atoi(c.QueryParam("size")); err == nil {
		size = v
	}

	return es, assemblyId, source, from, size
}
