package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func daemonAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer cfg.Close()

	processor, err := cfg.ProcessorService()
	if err != nil {
		return err
	}

	log.Infof("dripd config: %s", cfg)

	log.Info("starting commit loop...")
	processor.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(
		sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP, os.Interrupt,
	)
	<-sigChan

	log.Info("shutting down...")
	processor.Stop()
	return nil
}
