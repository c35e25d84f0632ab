package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	racehubcmd "github.com/PikalaxALT/dumbsparce/internal/cmd/racehub"
)

func main() {
	cfg, err := racehubcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[RACEHUB] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := racehubcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
