package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webcam-colorspace/internal/infrastructure/logger"
	"webcam-colorspace/internal/sink"
)

const statusPage = `<!DOCTYPE html>
<html>
<head>
	<title>Colorspace sink</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; }
		.status { padding: 20px; background-color: #e0f7fa; border-radius: 5px; }
	</style>
</head>
<body>
	<h1>Colorspace sink</h1>
	<div class="status">
		<p>Accepting capture uploads on <code>/ws</code></p>
		<p>Output directory: <code>%s</code></p>
	</div>
</body>
</html>
`

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	outputDir := flag.String("output", "recordings", "directory for uploaded captures")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := logger.NewLogrusLogger(*debug)

	store, err := sink.NewStore(*outputDir, log)
	if err != nil {
		log.Error("Failed to prepare output directory: %v", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", sink.NewHandler(store, log))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, statusPage, *outputDir)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Listening on port %d, status page at http://localhost:%d", *port, *port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed: %v", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Shutdown: %v", err)
	}
}
