package main

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/app"
	"github.com/bbernstein/chargefinder/internal/config"
	"github.com/bbernstein/chargefinder/internal/handler"
)

var (
	lambdaStart     = lambda.Start // Allow mocking of lambda.Start in tests
	stationsHandler *handler.StationsHandler
	setupOnce       sync.Once
)

func init() {
	setupOnce.Do(func() {
		if err := config.LoadDotEnv(); err != nil {
			log.Warn().Err(err).Msg("Ignoring unreadable .env file")
		}
		cfg := config.LoadFromEnv()
		cfg.InitializeLogging()

		core, err := app.Build(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize search core")
		}

		stationsHandler = handler.NewStationsHandler(core.Service)
	})
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return stationsHandler.HandleRequest(ctx, request)
}

func main() {
	lambdaStart(handleRequest)
}
