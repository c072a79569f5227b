package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"edgetrace/internal/aggregate"
	"edgetrace/internal/collectors/kernelcpu"
	"edgetrace/internal/collectors/kernelmemory"
	"edgetrace/internal/collectors/kernelprocess"
	"edgetrace/internal/collectors/kernelthermal"
	"edgetrace/internal/config"
	"edgetrace/internal/events"
	"edgetrace/internal/logger"
	"edgetrace/internal/session"
	"edgetrace/internal/tracepoint"
)

const version = "0.1.0"

var (
	flagListenAddress string
	flagTracePipe     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collectors and the metrics endpoint",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListenAddress, "web.listen-address", "", "address for the metrics endpoint (overrides config)")
	serveCmd.Flags().StringVar(&flagTracePipe, "trace-pipe", "", "path to the loader's frame pipe (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if flagListenAddress != "" {
		cfg.Server.ListenAddress = flagListenAddress
	}
	if flagTracePipe != "" {
		cfg.Source.TracePipe = flagTracePipe
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	layout, ok := tracepoint.LayoutByName(cfg.Source.Layout)
	if !ok {
		layout = tracepoint.DetectLayout()
	}

	log.Info().
		Str("version", version).
		Str("layout", layout.Name).
		Bool("cpu_enabled", cfg.Collectors.CPU.Enabled).
		Bool("mem_stall_enabled", cfg.Collectors.MemStall.Enabled).
		Bool("thermal_enabled", cfg.Collectors.Thermal.Enabled).
		Bool("exec_enabled", cfg.Collectors.Exec.Enabled).
		Str("listen_address", cfg.Server.ListenAddress).
		Msg("starting edgetrace")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Build the enabled collectors and route frames to them.
	handler := events.NewHandler(layout)

	var cpuCollector *kernelcpu.Collector
	if cfg.Collectors.CPU.Enabled {
		cpuCollector = kernelcpu.NewCollector()
		handler.RegisterSchedHandler(cpuCollector)
		prometheus.MustRegister(cpuCollector)
	}

	var memCollector *kernelmemory.Collector
	if cfg.Collectors.MemStall.Enabled {
		memCollector = kernelmemory.NewCollector()
		handler.RegisterMemoryHandler(memCollector)
		prometheus.MustRegister(memCollector)
	}

	var thermalCollector *kernelthermal.Collector
	if cfg.Collectors.Thermal.Enabled {
		thermalCollector = kernelthermal.NewCollector(layout)
		handler.RegisterThermalHandler(thermalCollector)
		prometheus.MustRegister(thermalCollector)
	}

	var execCollector *kernelprocess.Collector
	if cfg.Collectors.Exec.Enabled {
		execCollector = kernelprocess.NewCollector(cfg.Collectors.Exec.PidFilter, cfg.Collectors.Exec.CommFilter)
		handler.RegisterProcessHandler(execCollector)
		prometheus.MustRegister(execCollector)
		go func() {
			if err := execCollector.Drain(ctx); err != nil && err != context.Canceled {
				log.Warn().Err(err).Msg("exec drain stopped")
			}
		}()
	}

	// Frame sources come from the external loader over a pipe.
	manager := session.NewManager(handler)
	pipe, err := session.OpenPipe(cfg.Source.TracePipe)
	if err != nil {
		return err
	}
	manager.AddSource(pipe)
	if err := manager.Start(ctx); err != nil {
		return err
	}

	// Reduce raw counters into node-level readings.
	aggregator := aggregate.New(cpuCollector, memCollector, thermalCollector)
	go func() {
		if err := aggregator.Run(ctx); err != nil {
			log.Warn().Err(err).Msg("aggregator stopped")
		}
	}()

	// Metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle(cfg.Server.MetricsPath, promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html>
            <head><title>edgetrace</title></head>
            <body>
            <h1>edgetrace v%s</h1>
            <p><a href="%s">Metrics</a></p>
            </body>
            </html>`, version, cfg.Server.MetricsPath)
	})

	srv := &http.Server{Addr: cfg.Server.ListenAddress, Handler: mux}
	go func() {
		log.Info().Str("address", cfg.Server.ListenAddress).Msg("metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("metrics endpoint failed")
		}
	}()

	log.Info().Msg("edgetrace is collecting events")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down metrics endpoint")
	}

	if err := manager.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping session")
	}
	if execCollector != nil {
		execCollector.Close()
	}

	log.Info().Msg("edgetrace stopped")
	return nil
}
