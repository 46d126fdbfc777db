package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otellogrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdk_trace "go.opentelemetry.io/otel/sdk/trace"

	"tradepanel/src/eventconsumers"
	"tradepanel/src/eventmodels"
	"tradepanel/src/eventproducers/dashboardapi"
	"tradepanel/src/eventpubsub"
	"tradepanel/src/utils"
	"tradepanel/src/worker"
)

func main() {
	run()
}

// setupOTelSDK bootstraps the OpenTelemetry pipeline.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func setupOTelSDK(ctx context.Context) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prop)

	traceExporter, err := otlptrace.New(ctx, otlptracehttp.NewClient())
	if err != nil {
		return nil, err
	}

	res, _ := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", "tradepanel")))

	tracerProvider := sdk_trace.NewTracerProvider(
		sdk_trace.WithBatcher(traceExporter),
		sdk_trace.WithResource(res),
	)

	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}

	meterProvider := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(metricExporter)))
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		log.Fatalf("runtime.Start: %v", err)
	}

	return
}

func run() {
	projectsDir, err := utils.GetEnv("PROJECTS_DIR")
	if err != nil {
		log.Fatalf("PROJECTS_DIR not set: %v", err)
	}

	goEnv, err := utils.GetEnv("GO_ENV")
	if err != nil {
		log.Fatalf("GO_ENV not set: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	if err := utils.InitEnvironmentVariables(projectsDir, goEnv); err != nil {
		log.Panic(err)
	}

	eventpubsub.Init()

	log.SetOutput(os.Stdout)

	log.Infof("Log level set to %v", log.GetLevel())

	apiToken, err := utils.GetEnv("DASHBOARD_API_TOKEN")
	if err != nil {
		log.Fatalf("$DASHBOARD_API_TOKEN not set: %v", err)
	}

	streamCredential, err := utils.GetEnv("DASHBOARD_STREAM_CREDENTIAL")
	if err != nil {
		log.Fatalf("$DASHBOARD_STREAM_CREDENTIAL not set: %v", err)
	}

	configFile, err := utils.GetEnv("DASHBOARD_CONFIG_FILE")
	if err != nil {
		log.Fatalf("$DASHBOARD_CONFIG_FILE not set: %v", err)
	}

	configInDir := path.Join(projectsDir, "tradepanel", "src", configFile)
	config, err := utils.LoadDashboardConfig(configInDir)
	if err != nil {
		log.Fatalf("failed to load dashboard config: %v", err)
	}

	// Set up Telemetry
	log.AddHook(otellogrus.NewHook(otellogrus.WithLevels(
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
	)))

	if os.Getenv("OTEL_ENABLED") == "true" {
		otelShutdown, err := setupOTelSDK(ctx)
		if err != nil {
			log.Fatalf("failed to setup otel sdk: %v", err)
		}

		defer func() {
			if err := otelShutdown(context.Background()); err != nil {
				log.Errorf("otel shutdown: %v", err)
			}
		}()
	}

	// Setup dispatcher and shared state
	dispatcher := eventmodels.NewResponseDispatcher()
	state := eventmodels.NewDashboardState()

	submission := eventconsumers.NewSubmissionWorkerClient(&wg, state, dispatcher, config.Debounce(), config.OrderTimeout())

	newStream := func(account eventmodels.AccountRef) eventconsumers.StreamChannel {
		return worker.NewStreamClient(config.StreamURL, streamCredential, account)
	}

	session := eventconsumers.NewSessionWorkerClient(&wg, state, submission, newStream, config.APIBaseURL, apiToken)
	submission.SetRefreshConfig(session.RefreshConfig)

	// Setup router
	router := mux.NewRouter()

	handler := dashboardapi.NewHandler(session, submission, state, dispatcher, config.Debounce()+config.OrderTimeout()+time.Second)
	handler.SetupHandler(router.PathPrefix("/dashboard").Subrouter())

	// Register pprof handlers
	pprofRouter := router.PathPrefix("/debug/pprof").Subrouter()
	pprofRouter.HandleFunc("/", http.HandlerFunc(pprof.Index))
	pprofRouter.HandleFunc("/cmdline", http.HandlerFunc(pprof.Cmdline))
	pprofRouter.HandleFunc("/profile", http.HandlerFunc(pprof.Profile))
	pprofRouter.HandleFunc("/symbol", http.HandlerFunc(pprof.Symbol))
	pprofRouter.HandleFunc("/trace", http.HandlerFunc(pprof.Trace))
	pprofRouter.Handle("/allocs", pprof.Handler("allocs"))
	pprofRouter.Handle("/goroutine", pprof.Handler("goroutine"))
	pprofRouter.Handle("/heap", pprof.Handler("heap"))

	// Start event clients
	eventconsumers.NewLiveStateWorkerClient(&wg, state).Start(ctx)
	submission.Start(ctx)
	session.Start(ctx)

	// Setup web server
	srv := &http.Server{
		Handler: otelhttp.NewHandler(router, "dashboard"),
		Addr:    fmt.Sprintf(":%d", config.Port()),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start web server
	go func() {
		log.Infof("listening on :%d", config.Port())
		if err := srv.ListenAndServe(); err != nil {
			if err.Error() != "http: Server closed" {
				log.Fatalf("failed to start server: %v", err)
			}
		}
	}()

	// Create channel for shutdown signals.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	signal.Notify(stop, syscall.SIGTERM)

	log.Info("Main: init complete")

	// Block here until program is shut down
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown: %v", err)
	}

	cancel()

	wg.Wait()

	log.Info("Main: gracefully stopped!")
}
