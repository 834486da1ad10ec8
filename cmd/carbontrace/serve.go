package main

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tracekit/carbontrace/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server exposing calculation, record extraction, and
calculation history endpoints.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":5000", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	calcEngine, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := openStorage(ctx)
	if err != nil {
		slog.Warn("History storage unavailable, continuing without it", "error", err)
		store = nil
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	if viper.GetString("logging.level") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	var srv *server.Server
	if store != nil {
		srv = server.New(calcEngine, store)
	} else {
		srv = server.New(calcEngine, nil)
	}
	return srv.Run(viper.GetString("server.addr"))
}
