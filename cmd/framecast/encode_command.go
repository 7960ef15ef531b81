package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"framecast/internal/frame"
	"framecast/internal/logging"
	"framecast/internal/stream"
	"framecast/internal/wire"
)

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var addrFlag string
	var fpsFlag int
	var outFlag string

	cmd := &cobra.Command{
		Use:   "encode <frame-dir>",
		Short: "Stream a directory of frames to the encoder and save the mp4",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if fpsFlag < 1 || fpsFlag > wire.MaxFrameRate {
				return fmt.Errorf("frame rate %d out of range 1..%d", fpsFlag, wire.MaxFrameRate)
			}

			addr := strings.TrimSpace(addrFlag)
			if addr == "" {
				addr = cfg.Transport.RemoteAddr
			}
			if addr == "" {
				return fmt.Errorf("no encoder address; set --addr or transport.remote_addr")
			}

			frameDir := args[0]
			src, err := frame.NewDirSource(frameDir)
			if err != nil {
				return fmt.Errorf("open frame directory: %w", err)
			}

			outPath := strings.TrimSpace(outFlag)
			if outPath == "" {
				outPath = filepath.Base(filepath.Clean(frameDir)) + ".mp4"
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			client := stream.NewClient(addr, stream.Options{
				QueueDepth:    cfg.Transport.QueueDepth,
				DialTimeout:   cfg.DialTimeout(),
				WriteTimeout:  cfg.WriteTimeout(),
				ResultTimeout: cfg.ResultTimeout(),
				MaxChunkBytes: cfg.MaxChunkBytes(),
			}, logger)

			started := time.Now()
			art, err := client.Encode(runCtx, src, fpsFlag)
			if err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			if err := art.WriteFile(outPath); err != nil {
				return fmt.Errorf("write artifact: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Encoded %d frames to %s (%d bytes, %s, %s)\n",
				src.Len(), outPath, art.Size(), art.MediaType,
				time.Since(started).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "Encoder daemon address (host:port)")
	cmd.Flags().IntVar(&fpsFlag, "fps", 30, "Frame rate of the output video")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output mp4 path")
	return cmd
}
