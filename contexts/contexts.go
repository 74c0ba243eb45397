package contexts

import (
	"github.com/znavezz/ASD-ADAR-Correction/models"
	"github.com/znavezz/ASD-ADAR-Correction/services"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/labstack/echo"
)

type (
	// "Helper" Context to pass into routes that need
	//  the configuration, the elasticsearch client and the run service
	MergeContext struct {
		echo.Context
		Es7Client  *es7.Client
		Config     *models.Config
		RunService *services.RunService
	}
)
