package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"delskim/arrowio"
	"delskim/config"
	"delskim/datasrv"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	addr := cfg.ServeAddr

	cmd := &cobra.Command{
		Use:   "serve [flags] DATASET",
		Short: "Serve a skimmed dataset over ZeroMQ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.Default()

			dataset, err := arrowio.ReadTable(args[0])
			if err != nil {
				return err
			}
			sidecar := arrowio.SidecarPath(args[0])
			if bookkeeping, err := arrowio.ReadTable(sidecar); err != nil {
				log.Warn("no bookkeeping sidecar", "path", sidecar, "error", err)
			} else if err := dataset.Merge(bookkeeping); err != nil {
				return err
			}

			server, err := datasrv.NewServer(addr, dataset, log)
			if err != nil {
				return err
			}
			if err := server.Start(); err != nil {
				return err
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info("shutting down dataset server")
			server.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", addr, "zeromq endpoint to bind")
	return cmd
}
