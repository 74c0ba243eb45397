package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/contexts"
	gam "github.com/znavezz/ASD-ADAR-Correction/middleware"
	"github.com/znavezz/ASD-ADAR-Correction/models"
	serviceInfo "github.com/znavezz/ASD-ADAR-Correction/models/constants/service-info"
	runsMvc "github.com/znavezz/ASD-ADAR-Correction/mvc/runs"
	serviceInfoMvc "github.com/znavezz/ASD-ADAR-Correction/mvc/service-info"
	variantsMvc "github.com/znavezz/ASD-ADAR-Correction/mvc/variants"
	"github.com/znavezz/ASD-ADAR-Correction/repositories/artifacts"
	"github.com/znavezz/ASD-ADAR-Correction/services"
	"github.com/znavezz/ASD-ADAR-Correction/services/sanitation"
	"github.com/znavezz/ASD-ADAR-Correction/utils"
	"github.com/znavezz/ASD-ADAR-Correction/utils/ctxlog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
)

func main() {
	// optional .env next to the binary
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Println(err)
	}

	// Gather environment variables
	var cfg models.Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	fmt.Printf("Using : \n"+

		"\tDebug : %t \n\n"+

		"\tDBs Path : %s \n"+
		"\tDefault Assembly : %s \n"+
		"\tOutput Path : %s \n"+
		"\tSeed Table Path : %s \n"+
		"\tAnnotation Concurrency Level : %d\n"+
		"\tRequest Retention (hours) : %d\n\n"+

		"\tReference FASTA : %s \n"+
		"\tPost-Processing Output Directory : %s \n"+
		"\tPost-Processing Workers : %d\n\n"+

		"\tElasticsearch Url : %s \n"+
		"\tElasticsearch Username : %s\n"+
		"\tS3 Endpoint : %s \n"+
		"\tS3 Bucket : %s\n\n"+

		"Running on Port : %s\n",

		cfg.Debug,
		cfg.Merge.DbsPath, cfg.Merge.AssemblyId, cfg.Merge.OutputPath, cfg.Merge.SeedTablePath,
		cfg.Merge.AnnotationConcurrency, cfg.Merge.RequestRetentionHours,
		cfg.PostProcess.FastaPath, cfg.PostProcess.OutputDirectory, cfg.PostProcess.Workers,
		cfg.Elasticsearch.Url, cfg.Elasticsearch.Username,
		cfg.S3.Endpoint, cfg.S3.Bucket,
		cfg.Api.Port)
	// --

	logger, err := ctxlog.New(os.Stderr, cfg.Debug, cfg.LogFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	slog.SetDefault(logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	// Instantiate Server
	e := echo.New()

	// Service Connections:
	// -- Elasticsearch
	es, err := utils.CreateEsConnection(&cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	// -- S3
	var store artifacts.Store
	s3, err := artifacts.NewS3Store(&cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	if s3 != nil {
		store = s3
	}

	// Service Singletons
	rs := services.NewRunService(ctx, es, store, &cfg)
	sanitation.NewSanitationService(ctx, rs, &cfg)

	// Configure Server
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.DELETE},
	}))

	// -- Override handlers with the custom context
	//		to be able to provide variables and global singletons
	e.Use(func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &contexts.MergeContext{
				Context:    c,
				Es7Client:  es,
				Config:     &cfg,
				RunService: rs,
			}
			return h(cc)
		}
	})

	// Begin MVC Routes
	// -- Root
	e.GET("/", func(c echo.Context) error {
		fmt.Printf("[%s] - Root hit!\n", time.Now())
		return c.JSON(http.StatusOK, serviceInfo.SERVICE_WELCOME)
	})

	// -- Service Info
	e.GET("/service-info", serviceInfoMvc.GetServiceInfo)

	// -- Registered functions
	e.GET("/registry", func(c echo.Context) error {
		fmt.Printf("[%s] - Registry hit!\n", time.Now())
		return c.JSON(http.StatusOK, c.(*contexts.MergeContext).RunService.Registry.Names())
	})

	// -- Runs
	e.GET("/merge/run", runsMvc.MergeRun,
		// middleware
		gam.MandateAssemblyIdAttribute)
	e.GET("/postprocess/run", runsMvc.PostProcessRun,
		// middleware
		gam.MandateAssemblyIdAttribute)
	e.GET("/runs/requests", runsMvc.GetAllRunRequests)
	e.GET("/runs/requests/:id", runsMvc.GetRunRequest)
	e.GET("/runs/requests/:id/artifacts", runsMvc.GetRunArtifacts)

	// -- Variants
	e.GET("/variants/count", variantsMvc.VariantsCount,
		// middleware
		gam.MandateAssemblyIdAttribute)
	e.GET("/variants/get", variantsMvc.VariantsGet,
		// middleware
		gam.MandateAssemblyIdAttribute,
		gam.ValidateOptionalPagination)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		e.Shutdown(shutdownCtx)
	}()

	// Run
	if err := e.Start(":" + cfg.Api.Port); err != nil && err != http.ErrServerClosed {
		e.Logger.Fatal(err)
	}
}
