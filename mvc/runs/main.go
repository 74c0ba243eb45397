package runs

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/contexts"
	"github.com/znavezz/ASD-ADAR-Correction/middleware"
	"github.com/znavezz/ASD-ADAR-Correction/models/runs"

	"github.com/labstack/echo"
)

func MergeRun(c echo.Context) error {
	fmt.Printf("[%s] - MergeRun hit!\n", time.Now())
	rs := c.(*contexts.MergeContext).RunService

	req := rs.NewMergeRequest(middleware.AssemblyIdFrom(c))
	return submit(c, req)
}

func PostProcessRun(c echo.Context) error {
	fmt.Printf("[%s] - PostProcessRun hit!\n", time.Now())
	rs := c.(*contexts.MergeContext).RunService

	// -- optional table, relative to the merge output directory;
	// defaults to the merge output itself
	var tablePath string
	tableQP := c.QueryParam("table")
	if len(tableQP) > 0 {
		if !filepath.IsLocal(tableQP) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid 'table' parameter! Must be a path inside the results directory")
		}
		tablePath = filepath.Join(filepath.Dir(rs.Config.Merge.OutputPath), tableQP)
		if info, err := os.Stat(tablePath); err != nil || info.IsDir() {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Table %s not found!", tableQP))
		}
	}

	req := rs.NewPostProcessRequest(middleware.AssemblyIdFrom(c), tablePath)
	return submit(c, req)
}

func submit(c echo.Context, req runs.RunRequest) error {
	rs := c.(*contexts.MergeContext).RunService

	// check if there is an already existing run writing the same output
	if rs.OutputAlreadyRunning(req.Output) {
		return c.JSON(http.StatusConflict, runs.RunResponseDTO{
			Kind:    req.Kind,
			State:   runs.Error,
			Message: fmt.Sprintf("%s already being written..", req.Output),
		})
	}

	queued, err := rs.Submit(req)
	if err != nil {
		return c.JSON(http.StatusConflict, runs.RunResponseDTO{
			Kind:    req.Kind,
			State:   runs.Error,
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusAccepted, runs.RunResponseDTO{
		Id:      queued.Id,
		Kind:    queued.Kind,
		State:   queued.State,
		Message: "Successfully queued..",
	})
}

func GetAllRunRequests(c echo.Context) error {
	fmt.Printf("[%s] - GetAllRunRequests hit!\n", time.Now())
	return c.JSON(http.StatusOK, c.(*contexts.MergeContext).RunService.GetRequests())
}

func GetRunRequest(c echo.Context) error {
	fmt.Printf("[%s] - GetRunRequest hit!\n", time.Now())
	req, ok := c.(*contexts.MergeContext).RunService.GetRequest(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown run request!")
	}
	return c.JSON(http.StatusOK, req)
}

// GetRunArtifacts lists presigned download links for the objects a run
// published.
func GetRunArtifacts(c echo.Context) error {
	fmt.Printf("[%s] - GetRunArtifacts hit!\n", time.Now())
	rs := c.(*contexts.MergeContext).RunService
	if rs.Artifacts == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "No artifact store configured!")
	}

	id := c.Param("id")
	if _, ok := rs.GetRequest(id); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown run request!")
	}

	ctx := c.Request().Context()
	names, err := rs.Artifacts.List(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	links := make(map[string]string, len(names))
	for _, name := range names {
		url, err := rs.Artifacts.GetURL(ctx, id, name)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		links[name] = url
	}
	return c.JSON(http.StatusOK, links)
}
