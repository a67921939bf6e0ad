package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dawsonblock/rfsn-kernel/internal/httpapi"
	"github.com/dawsonblock/rfsn-kernel/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the kernel's session API over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	manager := httpapi.NewManager(newSessionFromConfig)
	events := httpapi.NewEventHub()

	router := httpapi.NewRouter(httpapi.Config{
		Manager: manager,
		Events:  events,
		RateLimit: map[string]httpapi.RateLimit{
			"sessions":        {RatePerSecond: cfg.HTTP.RatePerSecond, Burst: cfg.HTTP.Burst},
			"sessions.detail": {RatePerSecond: cfg.HTTP.RatePerSecond, Burst: cfg.HTTP.Burst},
		},
	})

	logging.Get(logging.CategoryHTTP).Info("listening", zap.String("addr", cfg.HTTP.Addr))
	fmt.Printf("rfsnctl serving on %s\n", cfg.HTTP.Addr)
	return http.ListenAndServe(cfg.HTTP.Addr, router)
}
