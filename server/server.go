package server

import (
	"context"
	"errors"
	"evroam/internal"
	"evroam/internal/config"
	"evroam/network"
	"evroam/utility"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	wsEndpoint = "/ws/:id"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	router     *httprouter.Router
	upgrader   websocket.Upgrader
	network    *network.Network
	logger     internal.LogHandler
	address    chan net.Addr
}

func NewServer(conf *config.Config, network *network.Network, logger internal.LogHandler) *Server {
	server := Server{
		conf:    conf,
		network: network,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		address: make(chan net.Addr, 1),
	}
	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.router = router
	server.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &server
}

func (s *Server) Register(router *httprouter.Router) {
	router.GET(wsEndpoint, s.handleFeed)
}

// SetApi mounts the REST endpoints.
func (s *Server) SetApi(api *Api) {
	api.Register(s.router)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listening address once Start has bound it.
func (s *Server) Addr() <-chan net.Addr {
	return s.address
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	if s.conf == nil {
		return utility.Err("configuration not loaded")
	}
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}
	s.address <- listener.Addr()
	s.logger.Debug(fmt.Sprintf("starting server on %s", listener.Addr()))
	if s.conf.Listen.TLS {
		s.logger.Debug("starting https TLS server")
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Debug("starting http server")
		err = s.httpServer.Serve(listener)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
