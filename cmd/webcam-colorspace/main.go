package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"webcam-colorspace/internal/application"
	"webcam-colorspace/internal/infrastructure/camera"
	"webcam-colorspace/internal/infrastructure/hostinfo"
	"webcam-colorspace/internal/infrastructure/logger"
	"webcam-colorspace/internal/infrastructure/streaming"
	"webcam-colorspace/internal/presentation/cli"
)

func main() {
	// Flags are parsed before any component exists
	cliApp := cli.NewCLI(nil, nil, nil)
	config := cliApp.ParseFlags()

	log := logger.NewLogrusLogger(config.Debug)

	var backend application.CaptureBackend
	switch config.Backend {
	case "mediadevices":
		backend = camera.NewMediaDevicesBackend(log)
	default:
		backend = camera.NewV4L2Backend(log)
	}

	var uploader application.Uploader
	if config.UploadAddr != "" {
		ws := streaming.NewWebSocketUploader(config.UploadAddr, log)
		log.Info("Uploading results to %s as session %s", config.UploadAddr, ws.Session())
		uploader = ws
	}

	service := application.NewDiagnosticService(backend, uploader, log)

	cliApp = cli.NewCLI(service, hostinfo.New(), log)
	cliApp.SetConfig(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cliApp.Run(ctx)
	stop()

	if uploader != nil {
		if closeErr := uploader.Close(); closeErr != nil {
			log.Error("Failed to close uploader: %v", closeErr)
		}
	}

	if err != nil {
		log.Error("Error: %v", err)
		os.Exit(1)
	}
}
