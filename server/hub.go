package server

import (
	"context"
	"evroam/api"
	"evroam/dispatch"
	"evroam/entity"
	"evroam/event"
	"evroam/internal"
	"evroam/internal/config"
	"evroam/internal/errorlistener"
	"evroam/metrics"
	"evroam/network"
	"evroam/ocpi"
	"evroam/pusher"
	"evroam/telegram"
	"evroam/types"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Hub wires the operator network to its consumers and the HTTP surface.
type Hub struct {
	conf     *config.Config
	log      zerolog.Logger
	logger   *internal.Logger
	network  *network.Network
	server   *Server
	pusher   *pusher.MessagePusher
	bot      *telegram.TgBot
	failures *errorlistener.ErrorListener
}

func NewHub(conf *config.Config, log zerolog.Logger) (*Hub, error) {
	hub := &Hub{conf: conf, log: log}

	location, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone initialization failed: %w", err)
	}

	var database *internal.MongoDB
	if conf.Mongo.Enabled {
		database, err = internal.NewMongoClient(conf)
		if err != nil {
			return nil, fmt.Errorf("mongodb setup failed: %w", err)
		}
		log.Info().Msg("mongodb is configured and enabled")
	} else {
		log.Info().Msg("database is disabled")
	}

	// logger with database for the feature log
	logService := internal.NewLogger(internal.WithComponent(log, "feature"), location)
	if database != nil {
		logService.SetDatabase(database)
		database.SetLogger(logService)
	}
	hub.logger = logService

	var failureStore errorlistener.Database
	if database != nil {
		failureStore = database
	}
	hub.failures = errorlistener.NewErrorListener(failureStore, logService)

	dispatcher := dispatch.New(
		dispatch.WithReporter(hub.failures),
		dispatch.WithHandlerTimeout(time.Duration(conf.Dispatcher.HandlerTimeout)*time.Second),
		dispatch.WithLogger(internal.WithComponent(log, "dispatch")),
	)
	hub.network = network.New(dispatcher, logService)
	if database != nil {
		hub.network.SetStore(database)
		hub.network.AddListener("status-keeper", internal.NewStatusKeeper(database))
	}

	if conf.Redis.Enabled {
		hub.pusher, err = pusher.NewPusher(conf, internal.WithComponent(log, "pusher"))
		if err != nil {
			return nil, fmt.Errorf("pusher setup failed: %w", err)
		}
		hub.network.AddListener("redis", hub.pusher)
	}

	if conf.Ocpi.Enabled {
		hub.network.AddListener("ocpi", ocpi.New(conf.Ocpi.Url, conf.Ocpi.Token, internal.WithComponent(log, "ocpi")))
	}

	if conf.Telegram.Enabled {
		hub.bot, err = telegram.NewBot(conf.Telegram.ApiKey, logService)
		if err != nil {
			return nil, fmt.Errorf("telegram bot setup failed: %w", err)
		}
		if database != nil {
			hub.bot.SetDatabase(database)
		}
		hub.bot.SetOperators(hub.network)
		hub.network.AddListener("telegram", hub.bot, event.VariantAdminStatusChanged, event.VariantStatusChanged)
	}

	diagnostics := api.NewApiHandler()
	diagnostics.SetLogger(logService)
	if database != nil {
		diagnostics.SetDatabase(database)
	}

	hub.server = NewServer(conf, hub.network, logService)
	hub.server.SetApi(NewServerApi(hub.network, diagnostics, logService))
	return hub, nil
}

func (h *Hub) Network() *network.Network {
	return h.network
}

func (h *Hub) Server() *Server {
	return h.server
}

// Run loads the operators and serves until ctx ends, then drains every
// subscription within the configured shutdown timeout.
func (h *Hub) Run(ctx context.Context) error {
	if err := h.network.Load(ctx, seeds(h.conf, h.network.Clock(), h.logger)...); err != nil {
		return err
	}
	h.failures.UpdateCounter()

	g, ctx := errgroup.WithContext(ctx)
	if h.bot != nil {
		h.bot.Start(ctx)
	}
	g.Go(h.server.Start)
	g.Go(func() error {
		return metrics.Listen(ctx, h.conf, internal.WithComponent(h.log, "metrics"))
	})
	g.Go(func() error {
		<-ctx.Done()
		h.shutdown()
		return nil
	})
	return g.Wait()
}

func (h *Hub) shutdown() {
	timeout := time.Duration(h.conf.Dispatcher.ShutdownTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("server shutdown", err)
	}
	if err := h.network.Close(ctx); err != nil {
		h.logger.Error("network shutdown", err)
	}
	if h.pusher != nil {
		if err := h.pusher.Close(); err != nil {
			h.logger.Error("pusher shutdown", err)
		}
	}
	h.logger.FeatureEvent("hub", "", "stopped")
	h.logger.Close()
}

func seeds(conf *config.Config, clock entity.Clock, logger internal.LogHandler) []network.Info {
	var infos []network.Info
	for _, op := range conf.Operators {
		info := network.Info{
			Id: event.Ref(op.Id),
			Attributes: entity.Attributes{
				Name:     op.Name,
				Homepage: op.Homepage,
				Email:    op.Email,
			},
		}
		if op.AdminStatus != "" {
			admin, err := types.ParseAdminStatus(op.AdminStatus)
			if err != nil {
				logger.Warn(fmt.Sprintf("seed %s: %s", op.Id, err))
			} else {
				info.AdminStatus = types.Some(types.NewTimestamped(admin, clock.Now()))
			}
		}
		infos = append(infos, info)
	}
	return infos
}
