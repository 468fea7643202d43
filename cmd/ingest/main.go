// Command ingest is a thin demonstration CLI wiring pkg/config, pkg/rtsp,
// pkg/rtp and pkg/h264 together: it pulls an H.264 elementary stream from
// an RTSP server and logs frame arrivals. Handing assembled frames to a
// real decoder is outside the scope of this module.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fenwickstream/rtsp-ingest/pkg/config"
	"github.com/fenwickstream/rtsp-ingest/pkg/logger"
	"github.com/fenwickstream/rtsp-ingest/pkg/rtsp"
)

func main() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	logFlags := logger.RegisterFlags(fs)

	transport := fs.String("transport", "auto", "preferred transport: auto, tcp, udp")
	payloadType := fs.Uint("payload-type", 96, "negotiated RTP payload type for the video track")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] rtsp://host/path\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		logger.PrintUsageExamples()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	rtspURL := fs.Arg(0)

	logConfig, err := logFlags.ToConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logger: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	logger.SetDefault(log)

	log.Info("starting RTSP ingest", "log_config", logFlags.String())

	var transportMode config.Transport
	switch *transport {
	case "tcp":
		transportMode = config.TransportTCP
	case "udp":
		transportMode = config.TransportUDP
	default:
		transportMode = config.TransportAuto
	}

	cfg, err := config.New(rtspURL, uint8(*payloadType), config.WithTransport(transportMode))
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := newIngestSession(ctx, cfg, log)

	client := rtsp.NewClient(cfg, session, log)
	client.Connect()

	log.Info("ready - press Ctrl+C to stop")
	<-ctx.Done()

	log.Info("shutting down")
	client.Disconnect()
	session.Close()
}
