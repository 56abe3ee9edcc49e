package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/epokhe/kvs/engineselect"
	"github.com/epokhe/kvs/server"
)

const version = "0.1.0"

func main() {
	var (
		addr       string
		engineFlag string
		dataDir    string
	)

	cmd := &cobra.Command{
		Use:          "kvs-server",
		Short:        "serve a kvs data directory over the network",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(dataDir, addr, engineFlag)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4000", "listen address")
	cmd.Flags().StringVar(&engineFlag, "engine", "", "storage engine (kvs or sled)")
	cmd.Flags().StringVar(&dataDir, "path", ".", "path to the data directory")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dataDir, addr, engineFlag string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	var requested *engineselect.Kind
	if engineFlag != "" {
		kind, err := engineselect.ParseKind(engineFlag)
		if err != nil {
			return err
		}
		requested = &kind
	}

	engine, err := engineselect.Open(dataDir, requested, engineselect.WithLogger(log))
	if err != nil {
		return fmt.Errorf("open %q: %w", dataDir, err)
	}

	srv, err := server.Listen(addr, engine, server.WithLogger(log))
	if err != nil {
		_ = engine.Close()
		return fmt.Errorf("listen on %q: %w", addr, err)
	}

	log.Infow("kvs-server starting", "version", version, "engine", engine.Kind(), "addr", srv.Addr())

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infow("received signal, shutting down", "signal", sig)
	case err := <-serveErr:
		log.Errorw("server stopped unexpectedly", "error", err)
	}

	_ = srv.Close()
	if err := engine.Close(); err != nil {
		log.Errorw("failed to close engine cleanly", "error", err)
		return err
	}
	return nil
}
