package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/veilchat/veilchat/internal/client/cli"
	"github.com/veilchat/veilchat/internal/client/config"
	"github.com/veilchat/veilchat/internal/logging"
)

func main() {
	cfg := config.LoadConfig()

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
	log := logging.NewZerologLogger(zl)

	ctx := context.Background()

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		zl.Fatal().Err(err).Msg("failed to start")
	}

	app.Run(ctx)
}
