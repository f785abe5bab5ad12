package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/litschool/admissions-portal/config"
	"github.com/litschool/admissions-portal/internal/cache"
	"github.com/litschool/admissions-portal/internal/handlers"
	"github.com/litschool/admissions-portal/internal/middleware"
	"github.com/litschool/admissions-portal/internal/portalapi"
	"github.com/litschool/admissions-portal/internal/presentation"
	"github.com/litschool/admissions-portal/internal/services"
	"github.com/litschool/admissions-portal/internal/upload"
	"github.com/litschool/admissions-portal/internal/validation"
	"github.com/litschool/admissions-portal/pkg/httpclient"
	"github.com/litschool/admissions-portal/pkg/jwt"
	"github.com/litschool/admissions-portal/pkg/logger"
	"github.com/litschool/admissions-portal/pkg/metrics"
	"github.com/litschool/admissions-portal/pkg/profiling"
	"github.com/litschool/admissions-portal/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// multipartOverhead is allowed on top of the receipt size for form framing
const multipartOverhead = 1 << 20

// registerWorkflowRoutes registers the public reference routes and the
// session-authenticated workflow routes
func registerWorkflowRoutes(
	v1 *gin.RouterGroup,
	sessions *services.SessionService,
	uploadCfg upload.Config,
	generalRateLimiter, sessionRateLimiter, submitRateLimiter *middleware.RateLimiter,
	referenceHandler *handlers.ReferenceHandler,
	studentHandler *handlers.StudentHandler,
	workflowHandler *handlers.WorkflowHandler,
) {
	v1.GET("/programs", generalRateLimiter.Middleware(), referenceHandler.GetPrograms)
	v1.GET("/cohorts", generalRateLimiter.Middleware(), referenceHandler.GetCohorts)
	v1.GET("/centres", generalRateLimiter.Middleware(), referenceHandler.GetCentres)
	v1.GET("/students/:id", generalRateLimiter.Middleware(), studentHandler.GetStudent)
	v1.POST("/sessions", sessionRateLimiter.Middleware(), middleware.BodySizeLimitMiddleware(16*1024), workflowHandler.StartSession)

	session := v1.Group("/session")
	session.Use(generalRateLimiter.Middleware(), middleware.SessionMiddleware(sessions))
	session.GET("", workflowHandler.GetSession)
	session.DELETE("", workflowHandler.EndSession)
	session.PATCH("/applicant", middleware.BodySizeLimitMiddleware(64*1024), workflowHandler.UpdateApplicant)
	session.POST("/application", submitRateLimiter.Middleware(), workflowHandler.SubmitApplication)
	session.POST("/otp/verify", submitRateLimiter.Middleware(), middleware.BodySizeLimitMiddleware(1024), workflowHandler.VerifyOTP)
	session.POST("/otp/resend", submitRateLimiter.Middleware(), workflowHandler.ResendOTP)
	session.POST("/payment-mode", middleware.BodySizeLimitMiddleware(1024), workflowHandler.SelectPaymentMode)
	session.POST("/payment-mode/confirm", workflowHandler.ConfirmPaymentMode)
	session.POST("/back", workflowHandler.Back)
	session.PUT("/receipt", middleware.BodySizeLimitMiddleware(uploadCfg.MaxBytes+multipartOverhead), workflowHandler.SelectReceipt)
	session.DELETE("/receipt", workflowHandler.RemoveReceipt)
	session.POST("/receipt/submit", submitRateLimiter.Middleware(), workflowHandler.SubmitReceipt)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting admissions portal",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
		zap.String("portal_api", cfg.PortalAPI.BaseURL),
	)

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	// Continuous profiling is opt-in
	stopProfiler, err := profiling.Start(cfg.Profiling, cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer stopProfiler()

	stopMetrics := make(chan struct{})
	defer close(stopMetrics)
	metrics.RecordInfrastructureMetrics(stopMetrics)

	// Admissions API client
	httpClient := httpclient.NewClientWithTimeout(cfg.APITimeout())
	portalClient := portalapi.NewHTTPClient(cfg.PortalAPI.BaseURL, httpClient, cfg.PortalAPI.MaxRetries)

	// Reference data is loaded before accepting requests so the container is
	// only marked healthy once programs and cohorts are known
	referenceCache := cache.NewReferenceCache(portalClient, cfg.ReferenceTTL())
	if err := referenceCache.Initialize(context.Background()); err != nil {
		logger.Fatal("Failed to initialize reference cache", zap.Error(err))
	}
	defer referenceCache.Stop()

	uploadCfg := upload.Config{
		MaxBytes:         cfg.Receipt.MaxBytes,
		MaxPixels:        cfg.Receipt.MaxPixels,
		PreviewMaxPixels: cfg.Receipt.PreviewMaxPixel,
	}
	tokenManager := jwt.NewTokenManager(cfg.Session.JWTSecret, cfg.Session.JWTIssuer, cfg.SessionTTL())
	validator := validation.NewEngine(nil)

	// Initialize services
	sessionService := services.NewSessionService(referenceCache, portalClient, validator, tokenManager, uploadCfg)

	// Initialize handlers
	bank := presentation.BankDetails{
		AccountName:   cfg.Bank.AccountName,
		AccountNumber: cfg.Bank.AccountNumber,
		IFSC:          cfg.Bank.IFSC,
		Branch:        cfg.Bank.Branch,
	}
	healthHandler := handlers.NewHealthHandler(referenceCache.IsReady)
	referenceHandler := handlers.NewReferenceHandler(referenceCache)
	studentHandler := handlers.NewStudentHandler(sessionService)
	workflowHandler := handlers.NewWorkflowHandler(sessionService, bank, uploadCfg)

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiters per endpoint type
	generalRateLimiter := middleware.NewRateLimiter(50, 100) // 50 req/sec, burst of 100
	sessionRateLimiter := middleware.NewRateLimiter(0.2, 5)  // 1 session/5s, burst of 5
	submitRateLimiter := middleware.NewRateLimiter(1, 5)     // 1 req/sec, burst of 5 (OTP and upload abuse)
	defer generalRateLimiter.Stop()
	defer sessionRateLimiter.Stop()
	defer submitRateLimiter.Stop()

	// Operational endpoints are not versioned
	api := router.Group("/api")
	api.GET("/healthcheck", generalRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", generalRateLimiter.Middleware(), gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	registerWorkflowRoutes(v1, sessionService, uploadCfg,
		generalRateLimiter, sessionRateLimiter, submitRateLimiter,
		referenceHandler, studentHandler, workflowHandler)

	// WriteTimeout covers a submission waiting on the admissions API
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.APITimeout() + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...", zap.Int("active_sessions", sessionService.Count()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
