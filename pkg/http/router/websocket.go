package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gobwas/ws"
	http_server "github.com/lintang-b-s/awooter/pkg/http/server"
	"github.com/mailru/easygo/netpoll"
	"go.uber.org/zap"
)

const (
	HANDSHAKE_TIMEOUT = 5 * time.Second
	ACCEPT_COOLDOWN   = 5 * time.Millisecond
)

// serveWebsocket accepts progress subscribers on the websocket port until ctx is done.
// connections are watched with epoll instead of a goroutine each, ref: https://sergey.kamardin.org/articles/million-websocket-and-go/
func (api *API) serveWebsocket(ctx context.Context, config http_server.Config) error {
	srv := http_server.New(ctx, nil, config, true)
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	api.log.Info(fmt.Sprintf("progress websocket run on port %d", config.WebsocketPort))

	api.poller, err = netpoll.New(nil)
	if err != nil {
		ln.Close()
		return err
	}

	acceptDesc, err := netpoll.HandleListener(ln, netpoll.EventRead|netpoll.EventOneShot)
	if err != nil {
		ln.Close()
		return err
	}

	err = api.poller.Start(acceptDesc, func(ev netpoll.Event) {
		if ev&netpoll.EventPollerClosed != 0 {
			return
		}
		defer api.poller.Resume(acceptDesc)

		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				api.log.Sugar().Infof("accept error: %v; retrying in %s", err, ACCEPT_COOLDOWN)
				time.Sleep(ACCEPT_COOLDOWN)
				return
			}
			if !errors.Is(err, net.ErrClosed) {
				api.log.Error("accept error", zap.Error(err))
			}
			return
		}
		api.handle(conn)
	})
	if err != nil {
		ln.Close()
		return err
	}

	<-ctx.Done()

	api.poller.Stop(acceptDesc)
	acceptDesc.Close()
	ln.Close()
	api.hub.RemoveAllUser()

	api.log.Info("websocket server stopped")
	return nil
}

// handle upgrades conn and registers it with the hub. the poller wakes us when the subscriber sends a
// message or hangs up.
func (api *API) handle(conn net.Conn) {
	_ = conn.SetDeadline(time.Now().Add(HANDSHAKE_TIMEOUT))
	hs, err := ws.Upgrade(conn)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("connection", nameConn(conn)))
		conn.Close()
		return
	}
	_ = conn.SetDeadline(time.Time{})

	api.log.Info("established websocket connection", zap.String("connection", nameConn(conn)),
		zap.String("protocol", hs.Protocol))

	user := api.hub.Register(conn)

	desc, err := netpoll.HandleRead(conn)
	if err != nil {
		api.log.Error("watch websocket connection", zap.Error(err))
		api.hub.Remove(user)
		return
	}

	stop := func() {
		api.poller.Stop(desc)
		desc.Close()
		api.hub.Remove(user)
	}

	err = api.poller.Start(desc, func(ev netpoll.Event) {
		if ev&(netpoll.EventReadHup|netpoll.EventHup|netpoll.EventPollerClosed) != 0 {
			api.log.Info("user disconnected from websocket server", zap.String("connection", nameConn(conn)))
			stop()
			return
		}
		if err := user.Receive(); err != nil {
			api.log.Info("websocket read", zap.Error(err), zap.String("connection", nameConn(conn)))
			stop()
		}
	})
	if err != nil {
		api.log.Error("watch websocket connection", zap.Error(err))
		desc.Close()
		api.hub.Remove(user)
	}
}

func nameConn(conn net.Conn) string {
	return conn.LocalAddr().String() + " > " + conn.RemoteAddr().String()
}
