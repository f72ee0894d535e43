package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	waiterx "github.com/orderai/orderai/agent/agents/waiter"
	catalogx "github.com/orderai/orderai/agent/catalog"
	chatx "github.com/orderai/orderai/agent/chat"
	notifyx "github.com/orderai/orderai/agent/notify"
	orderx "github.com/orderai/orderai/agent/order"
	promptx "github.com/orderai/orderai/agent/prompt"
	sessionx "github.com/orderai/orderai/agent/session"
	storex "github.com/orderai/orderai/agent/store"
	toolx "github.com/orderai/orderai/agent/tool"
	configx "github.com/orderai/orderai/pkg/config"
	_ "github.com/orderai/orderai/pkg/logger/autoload"
	openrouterx "github.com/orderai/orderai/pkg/openrouter"
	serverx "github.com/orderai/orderai/server"
)

type AppConfig struct {
	MenuPath      string `envconfig:"MENU_PATH" split_words:"true"`
	OrdersBackend string `envconfig:"ORDERS_BACKEND" split_words:"true" default:"file"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := loadCatalog(appCfg.MenuPath)
	orders := buildOrderStore(ctx, appCfg.OrdersBackend)

	sessions := sessionx.NewRegistry()
	hub := notifyx.NewHub()
	dispatcher := toolx.NewDispatcher(catalog, sessions, orderx.NewFinalizer(orders), hub)

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	chatModel, err := openRouterCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create chat model")
	}

	agent, err := waiterx.New(ctx, chatModel, dispatcher, promptx.RenderWaiter(catalog))
	if err != nil {
		log.Fatal().Err(err).Msg("create waiter agent")
	}

	svc, err := chatx.NewService(sessions, agent, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("create chat service")
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	srv := serverx.New(*serverCfg, svc, sessions, catalog, orders, hub)
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func loadCatalog(menuPath string) *catalogx.Catalog {
	if strings.TrimSpace(menuPath) == "" {
		return catalogx.Default()
	}
	catalog, err := catalogx.LoadFile(menuPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", menuPath).Msg("load menu")
	}
	return catalog
}

func buildOrderStore(ctx context.Context, backend string) orderx.Store {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "file":
		cfg := configx.MustNew[storex.FileConfig]("ORDERS")
		s, err := storex.NewFileStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("create file order store")
		}
		return s
	case "postgres":
		cfg := configx.MustNew[storex.PostgresConfig]("ORDERS")
		s := storex.NewPostgresStore(*cfg)
		if err := s.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("init postgres order store")
		}
		return s
	default:
		log.Fatal().Str("backend", backend).Msg("unknown orders backend")
		return nil
	}
}
