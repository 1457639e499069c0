package server

import (
	"context"
	"evroam/dispatch"
	"evroam/event"
	"evroam/internal"
	"evroam/utility"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	feedBuffer   = 64
	writeTimeout = 10 * time.Second
)

// feed streams the events of one operator to a websocket client.
type feed struct {
	id      string
	conn    *websocket.Conn
	out     chan []byte
	closed  chan struct{}
	retired chan struct{}
	once    sync.Once
	subs    []*dispatch.Subscription
	logger  internal.LogHandler
}

func parseVariants(list string) ([]event.Variant, error) {
	names := utility.SplitList(list)
	if len(names) == 0 {
		return event.AllVariants(), nil
	}
	var variants []event.Variant
	for _, name := range names {
		v, err := event.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("id")
	op, err := s.network.Lookup(event.Ref(id))
	if err != nil {
		writeJSON(w, statusCode(err), errorResponse{Error: err.Error()})
		return
	}
	variants, err := parseVariants(r.URL.Query().Get("variants"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", err)
		return
	}
	s.logger.Debug(fmt.Sprintf("feed of %s opened from %s", id, r.RemoteAddr))
	observeConnections(1)

	f := &feed{
		id:      id,
		conn:    conn,
		out:     make(chan []byte, feedBuffer),
		closed:  make(chan struct{}),
		retired: make(chan struct{}),
		logger:  s.logger,
	}
	for _, variant := range variants {
		sub, err := op.Subscribe(variant, f)
		if err != nil {
			s.logger.Warn(fmt.Sprintf("feed of %s: %s", id, err))
			f.close(websocket.CloseGoingAway)
			return
		}
		f.subs = append(f.subs, sub)
	}
	go f.watch()
	go f.writer()
	go f.reader()
}

func (f *feed) Name() string {
	return "ws-feed"
}

func (f *feed) Handle(ctx context.Context, ev event.Event) error {
	payload, err := event.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case f.out <- payload:
		return nil
	case <-f.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watch closes the feed once the operator is retired and every queued event
// has been handed over.
func (f *feed) watch() {
	for _, sub := range f.subs {
		select {
		case <-sub.Done():
		case <-f.closed:
			return
		}
	}
	close(f.retired)
}

func (f *feed) writer() {
	for {
		select {
		case payload := <-f.out:
			if err := f.write(payload); err != nil {
				f.close(websocket.CloseAbnormalClosure)
				return
			}
		case <-f.retired:
			for {
				select {
				case payload := <-f.out:
					if f.write(payload) != nil {
						f.close(websocket.CloseAbnormalClosure)
						return
					}
				default:
					f.close(websocket.CloseGoingAway)
					return
				}
			}
		case <-f.closed:
			return
		}
	}
}

func (f *feed) write(payload []byte) error {
	_ = f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(websocket.TextMessage, payload)
}

func (f *feed) reader() {
	for {
		if _, _, err := f.conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Debug(fmt.Sprintf("feed of %s closed by client", f.id))
			}
			f.close(websocket.CloseNormalClosure)
			return
		}
	}
}

func (f *feed) close(code int) {
	f.once.Do(func() {
		close(f.closed)
		for _, sub := range f.subs {
			sub.Release()
		}
		if code != websocket.CloseAbnormalClosure {
			msg := websocket.FormatCloseMessage(code, "")
			_ = f.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		}
		_ = f.conn.Close()
		observeConnections(-1)
	})
}
