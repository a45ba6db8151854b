package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	cvrpc "curationvault/pkg/api/cvrpc/v1"
	"curationvault/pkg/app"
	"curationvault/pkg/config"
	"curationvault/pkg/server"
	"curationvault/pkg/service"

	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Config
	cfgFile := flag.String("config", "", "config file (default is $HOME/.cv/config.yaml)")
	flag.Parse()

	if err := config.Load(*cfgFile); err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Init Core Application
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize app: %v", err)
	}
	defer application.Close()
	logger := application.Logger
	if used := config.ConfigFileUsed(); used != "" {
		logger.Info("config loaded", "file", used)
	}

	// 3. Setup Network
	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.Fatalf("❌ Failed to listen on %s: %v", cfg.Server.Addr, err)
	}

	// 4. Setup gRPC Server
	grpcServer := server.New(logger)
	cvrpc.RegisterActorServiceServer(grpcServer, service.NewActorService(application))

	// Enable Reflection for debugging tools (grpcurl)
	reflection.Register(grpcServer)

	// 5. Characterization workers
	go func() {
		if err := application.RunWorkers(ctx); err != nil {
			logger.Error("characterization workers stopped", "error", err)
		}
	}()

	// 6. Start Server (Async)
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.Server.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("failed to serve", "error", err)
			stop()
		}
	}()

	// 7. Graceful Shutdown
	<-ctx.Done()
	logger.Info("shutting down server")
	grpcServer.GracefulStop()
	logger.Info("server stopped")
}
