package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marcovalle/ventia/api"
	contractx "github.com/marcovalle/ventia/assistant/contract"
	gatewayx "github.com/marcovalle/ventia/assistant/gateway"
	orchestratorx "github.com/marcovalle/ventia/assistant/orchestrator"
	orderlogx "github.com/marcovalle/ventia/assistant/orderlog"
	promptx "github.com/marcovalle/ventia/assistant/prompt"
	sessionx "github.com/marcovalle/ventia/assistant/session"
	toolx "github.com/marcovalle/ventia/assistant/tool"
	configx "github.com/marcovalle/ventia/pkg/config"
	_ "github.com/marcovalle/ventia/pkg/logger/autoload"
	openaix "github.com/marcovalle/ventia/pkg/openaix"
	pineconex "github.com/marcovalle/ventia/pkg/pinecone"
)

type AppConfig struct {
	Addr         string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	MaxToolDepth int           `envconfig:"MAX_TOOL_DEPTH" split_words:"true" default:"3"`
	ShutdownWait time.Duration `envconfig:"SHUTDOWN_WAIT" split_words:"true" default:"10s"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("APP")
	openaiCfg := configx.MustNew[openaix.Config]("OPENAI")
	pineconeCfg := configx.MustNew[pineconex.Config]("PINECONE")
	ordersCfg := configx.MustNew[orderlogx.Config]("ORDERS")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openaiClient := openaix.NewClient(*openaiCfg)
	if openaiClient == nil {
		log.Fatal().Msg("failed to initialize openai client")
	}
	gw, err := gatewayx.NewOpenAI(openaiClient, openaiCfg.Model, openaiCfg.EmbedModel, openaiCfg.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize model gateway")
	}

	index, err := pineconex.NewClient(*pineconeCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pinecone client")
	}
	if err := index.EnsureIndex(ctx); err != nil {
		log.Fatal().Err(err).Str("index", pineconeCfg.Index).Msg("failed to provision pinecone index")
	}
	log.Info().Str("index", pineconeCfg.Index).Msg("pinecone index ready")

	productIndex, err := gatewayx.NewPineconeIndex(index)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize product index")
	}

	var orders contractx.OrderLog
	if ordersCfg.PostgresDSN != "" {
		pg, err := orderlogx.NewPostgresLog(ctx, ordersCfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize postgres order log")
		}
		defer pg.Close()
		orders = pg
		log.Info().Msg("using postgres order log")
	} else {
		fileLog, err := orderlogx.NewFileLog(ordersCfg.FilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize file order log")
		}
		orders = fileLog
		log.Info().Str("path", ordersCfg.FilePath).Msg("using file order log")
	}

	registry := toolx.NewRegistry()
	search := toolx.NewSearch(gw, productIndex)
	registry.MustRegister(search.Spec(), search.Handle)
	orderCreation := toolx.NewOrderCreation(orders)
	registry.MustRegister(orderCreation.Spec(), orderCreation.Handle)

	sessions := sessionx.NewStore(promptx.System())

	assistant, err := orchestratorx.New(sessions, gw, registry, orchestratorx.Config{
		MaxDepth: appCfg.MaxToolDepth,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize orchestrator")
	}

	server := api.NewServer(assistant)

	go func() {
		log.Info().Str("addr", appCfg.Addr).Msg("assistant listening")
		if err := server.Start(appCfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownWait)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
