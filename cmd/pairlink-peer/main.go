package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pion/webrtc/v4"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/helpify-project/pairlink/internal/passphrase"
	"github.com/helpify-project/pairlink/internal/peer"
	"github.com/helpify-project/pairlink/internal/room"
)

func main() {
	ctx := context.Background()
	ctx, _ = signal.NotifyContext(ctx, os.Interrupt)

	app := &cli.App{
		Name:  "pairlink-peer",
		Usage: "send or receive a small payload peer to peer through a pairlink relay",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name: "debug",
				EnvVars: []string{
					"PAIRLINK_PEER_DEBUG",
				},
			},
			&cli.StringFlag{
				Name:  "server",
				Value: "http://127.0.0.1:3009",
				EnvVars: []string{
					"PAIRLINK_PEER_SERVER",
				},
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Turnstile token or clearance, not needed against a development server",
				EnvVars: []string{
					"PAIRLINK_PEER_TOKEN",
				},
			},
			&cli.StringSliceFlag{
				Name:  "stun",
				Value: cli.NewStringSlice("stun:stun.l.google.com:19302"),
				EnvVars: []string{
					"PAIRLINK_PEER_STUN",
				},
			},
		},
		Before: func(cctx *cli.Context) (err error) {
			err = setupLogging(cctx.Bool("debug"))
			return
		},
		Commands: []*cli.Command{
			{
				Name:      "send",
				Usage:     "send a file (or stdin) to whoever joins the room",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "passphrase",
						Usage: "room to use, a new one is requested when empty",
					},
				},
				Action: sendAction,
			},
			{
				Name:      "receive",
				Usage:     "receive a payload from the sender in a room and write it to stdout",
				ArgsUsage: "<passphrase>",
				Action:    receiveAction,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		zap.L().Fatal("unhandled error", zap.Error(err))
	}
}

func setupLogging(debugMode bool) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.Development = false
	if debugMode {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	} else {
		cfg.Level.SetLevel(zapcore.InfoLevel)
	}

	// stdout carries the received payload.
	cfg.OutputPaths = []string{
		"stderr",
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(logger)

	return nil
}

func options(cctx *cli.Context) peer.Options {
	var servers []webrtc.ICEServer
	if urls := cctx.StringSlice("stun"); len(urls) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: urls})
	}
	return peer.Options{
		ICEServers: servers,
		Logger:     zap.L(),
	}
}

func sendAction(cctx *cli.Context) (err error) {
	var in io.Reader = os.Stdin
	if path := cctx.Args().First(); path != "" {
		var f *os.File
		if f, err = os.Open(path); err != nil {
			return
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	payload, err := io.ReadAll(io.LimitReader(in, peer.MaxPayload+1))
	if err != nil {
		return
	}

	server := cctx.String("server")
	name := cctx.String("passphrase")
	if name == "" {
		if name, err = peer.RequestPassphrase(cctx.Context, nil, server); err != nil {
			return
		}
	}
	if !passphrase.Valid(name) {
		return fmt.Errorf("invalid passphrase %q", name)
	}

	u, err := peer.SignalURL(server, name, room.RoleSender, cctx.String("token"))
	if err != nil {
		return
	}

	fmt.Fprintf(os.Stderr, "passphrase: %s\n", name)
	return peer.Send(cctx.Context, u, payload, options(cctx))
}

func receiveAction(cctx *cli.Context) (err error) {
	name := cctx.Args().First()
	if !passphrase.Valid(name) {
		return errors.New("usage: pairlink-peer receive <passphrase>")
	}

	u, err := peer.SignalURL(cctx.String("server"), name, room.RoleReceiver, cctx.String("token"))
	if err != nil {
		return
	}

	payload, err := peer.Receive(cctx.Context, u, options(cctx))
	if err != nil {
		return
	}

	_, err = os.Stdout.Write(payload)
	return
}
