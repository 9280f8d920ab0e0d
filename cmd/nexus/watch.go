package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nexusmap/nexus/internal/control"
	"github.com/nexusmap/nexus/internal/graph"
	"github.com/nexusmap/nexus/internal/repl"
	"github.com/nexusmap/nexus/internal/syncctl"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a project and print changes as they arrive",
	Long: `Keep a project open and print a line for every change, until interrupted.

In remote mode, changes saved by other clients are reloaded as their notifications
arrive. Notifications caused by this process's own saves are ignored.

While watching, 'nexus sync save|refresh|status' talk to this process.

With --metrics-addr the sync counters (saves, reloads, suppressed echoes, save
latency) are served in Prometheus format on /metrics.

Examples:
  nexus --mode remote watch -p Website
  nexus --mode remote watch --metrics-addr :9464`,
	Run: func(cmd *cobra.Command, args []string) {
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		showTree, _ := cmd.Flags().GetBool("tree")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		metrics := syncctl.NewMetrics(reg)

		var srv *http.Server
		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
			srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server stopped", "addr", metricsAddr, "error", err)
				}
			}()
		}

		s, err := openSession(ctx, projectRef, metrics)
		exitOnErr("opening project", err)

		ctlSrv, err := control.NewServer(socketPath(s.project.ID), control.SyncHandler(s.ctl), logger)
		if err == nil {
			err = ctlSrv.Start(ctx)
		}
		if err != nil {
			logger.Warn("control socket unavailable", "error", err)
			ctlSrv = nil
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("%s Watching %s (%s mode). Press Ctrl+C to stop.\n", cyan("👀"), s.project.Name, cfg.Storage.Mode)
		if metricsAddr != "" {
			fmt.Printf("%s Metrics on http://%s/metrics\n", gray("•"), metricsAddr)
		}

		unsubscribe := s.store.Subscribe(func(ch graph.Change) {
			fmt.Printf("%s %s change: %d phases, %d tasks\n",
				gray(time.Now().Format("15:04:05")), ch.Origin, len(ch.Graph.Phases()), len(ch.Graph.Tasks()))
			if showTree {
				repl.PrintTree(os.Stdout, ch.Graph)
			}
		})

		<-ctx.Done()
		unsubscribe()
		fmt.Println()

		if ctlSrv != nil {
			if err := ctlSrv.Stop(); err != nil {
				logger.Warn("failed to stop control socket", "error", err)
			}
		}
		closeErr := s.close()
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = srv.Shutdown(shutdownCtx)
			cancel()
		}
		exitOnErr("saving project", closeErr)
	},
}

func init() {
	watchCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	watchCmd.Flags().Bool("tree", false, "Print the whole tree after every change")
	rootCmd.AddCommand(watchCmd)
}
