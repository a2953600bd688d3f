package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc"

	apiv1 "github.com/mundrapranay/silhouette-db/api/v1"
	"github.com/mundrapranay/silhouette-db/internal/server"
	"github.com/mundrapranay/silhouette-db/internal/store"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "silhouette-server: %v\n", err)
		os.Exit(2)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "silhouette",
		Level: hclog.LevelFromString(cfg.LogLevel),
	}).With("node", cfg.NodeID)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger hclog.Logger) error {
	s, err := store.NewStore(store.Config{
		NodeID:           cfg.NodeID,
		ListenAddr:       cfg.ListenAddr,
		DataDir:          cfg.DataDir,
		Bootstrap:        cfg.Bootstrap,
		HeartbeatTimeout: cfg.Raft.HeartbeatTimeout,
		ElectionTimeout:  cfg.Raft.ElectionTimeout,
		CommitTimeout:    cfg.Raft.CommitTimeout,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer s.Shutdown()

	srv, err := server.NewServer(s, server.Config{
		StorageBackend: cfg.StorageBackend,
		PIR:            cfg.PIR,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcSrv := grpc.NewServer(apiv1.ServerCodec())
	apiv1.RegisterCoordinationServiceServer(grpcSrv, srv)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcSrv.Serve(lis)
	}()
	logger.Info("serving gRPC", "addr", lis.Addr().String(), "backend", cfg.StorageBackend)

	if cfg.Bootstrap {
		logger.Info("bootstrapping cluster")
		if err := s.WaitForLeader(30 * time.Second); err != nil {
			grpcSrv.Stop()
			return err
		}
		for _, p := range cfg.Peers {
			if err := s.AddPeer(p.ID, p.Addr); err != nil {
				logger.Warn("failed to add peer", "peer", p.ID, "addr", p.Addr, "error", err)
				continue
			}
			logger.Info("peer added", "peer", p.ID, "addr", p.Addr)
		}
	}

	logger.Info("node ready", "raft", s.LocalAddr(), "grpc", cfg.GRPCAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		grpcSrv.GracefulStop()
		return nil
	case err := <-serveErr:
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}
}
