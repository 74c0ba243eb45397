package variants

import (
	"fmt"
	"net/http"
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/mvc"
	a "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"
	esRepo "github.com/znavezz/ASD-ADAR-Correction/repositories/elasticsearch"

	"github.com/labstack/echo"
)

func VariantsCount(c echo.Context) error {
	fmt.Printf("[%s] - VariantsCount hit!\n", time.Now())
	es, assemblyId, _, _, _ := mvc.RetrieveCommonElements(c)
	if es == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Elasticsearch is not configured!")
	}

	index := esRepo.IndexName(a.ToGenomeVersion(assemblyId))
	count, err := esRepo.CountDocuments(c.Request().Context(), es, index)
	if err != nil {
		fmt.Printf("Failed to count variants in %s: %s\n", index, err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"index": index,
		"count": count,
	})
}

func VariantsGet(c echo.Context) error {
	fmt.Printf("[%s] - VariantsGet hit!\n", time.Now())
	es, assemblyId, source, from, size := mvc.RetrieveCommonElements(c)
	if es == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Elasticsearch is not configured!")
	}

	index := esRepo.IndexName(a.ToGenomeVersion(assemblyId))
	docs, err := esRepo.GetDocuments(c.Request().Context(), es, index, source, from, size)
	if err != nil {
		fmt.Printf("Failed to get variants from %s: %s\n", index, err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"index":   index,
		"from":    from,
		"results": docs,
	})
}
