package gameserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "token-abc"

type fakeGameServer struct {
	server          *httptest.Server
	handshakeStatus int
	handshakeBody   string
	probeReply      string
	received        chan string
	conns           chan *websocket.Conn
	bound           atomic.Bool
	upgradeAuth     atomic.Value
}

func newFakeGameServer(t *testing.T, configure func(*fakeGameServer)) *fakeGameServer {
	t.Helper()

	fake := &fakeGameServer{
		handshakeBody: `0{"sid":"abc123","upgrades":["websocket"],"pingInterval":25000,"pingTimeout":20000}`,
		probeReply:    "3probe",
		received:      make(chan string, 64),
		conns:         make(chan *websocket.Conn, 1),
	}
	if configure != nil {
		configure(fake)
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/socket.io/" {
			http.NotFound(w, r)
			return
		}

		query := r.URL.Query()
		switch {
		case query.Get("transport") == "polling" && r.Method == http.MethodGet:
			if r.Header.Get("Authorization") != testToken {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if fake.handshakeStatus != 0 {
				w.WriteHeader(fake.handshakeStatus)
				return
			}
			_, _ = w.Write([]byte(fake.handshakeBody))
		case query.Get("transport") == "polling" && r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			if query.Get("sid") != "abc123" || string(body) != "40" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fake.bound.Store(true)
			_, _ = w.Write([]byte("ok"))
		case query.Get("transport") == "websocket":
			fake.upgradeAuth.Store(r.Header.Get("Authorization"))
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			_, message, err := conn.ReadMessage()
			if err != nil || string(message) != "2probe" {
				_ = conn.Close()
				return
			}
			if fake.probeReply != "" {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(fake.probeReply))
			}
			fake.conns <- conn
			for {
				_, message, err := conn.ReadMessage()
				if err != nil {
					return
				}
				fake.received <- string(message)
			}
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *fakeGameServer) conn(t *testing.T) *websocket.Conn {
	t.Helper()

	select {
	case conn := <-f.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted a websocket")
		return nil
	}
}

func waitForFrame(t *testing.T, frames <-chan string, want string) {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case frame := <-frames:
			if frame == want {
				return
			}
		case <-timeout:
			t.Fatalf("frame %q never arrived", want)
		}
	}
}

func newTestTransport(fake *fakeGameServer, mutate func(*Config)) *Transport {
	cfg := Config{
		Token:        testToken,
		HTTPClient:   fake.server.Client(),
		ProbeTimeout: time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

func TestConnectCompletesHandshakeAndProbe(t *testing.T) {
	t.Parallel()

	fake := newFakeGameServer(t, nil)
	transport := newTestTransport(fake, nil)
	t.Cleanup(func() { _ = transport.Close() })

	session, err := transport.Connect(context.Background(), fake.server.URL)
	require.NoError(t, err)
	assert.Equal(t, "abc123", session.ID)
	assert.Equal(t, fake.server.URL, session.Endpoint)
	assert.Equal(t, domain.StateOpen, transport.State())
	assert.True(t, fake.bound.Load())
	assert.Equal(t, testToken, fake.upgradeAuth.Load())

	fake.conn(t)
	waitForFrame(t, fake.received, "5")

	assert.True(t, transport.Emit("tapBunny", nil))
	waitForFrame(t, fake.received, `42["tapBunny"]`)
}

func TestConnectDeliversUpdateEvents(t *testing.T) {
	t.Parallel()

	updates := make(chan domain.PlayerUpdate, 1)
	fake := newFakeGameServer(t, nil)
	transport := newTestTransport(fake, func(cfg *Config) {
		cfg.OnUpdate = func(update domain.PlayerUpdate) { updates <- update }
	})
	t.Cleanup(func() { _ = transport.Close() })

	_, err := transport.Connect(context.Background(), fake.server.URL)
	require.NoError(t, err)

	conn := fake.conn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`42["update",{"firstname":"Ann","totalPoint":150}]`)))

	select {
	case update := <-updates:
		assert.Equal(t, "Ann", update.FirstName)
		assert.Equal(t, int64(150), update.TotalPoint)
	case <-time.After(2 * time.Second):
		t.Fatal("update was not delivered")
	}
}

func TestConnectTimesOutWithoutProbeAck(t *testing.T) {
	t.Parallel()

	fake := newFakeGameServer(t, func(f *fakeGameServer) { f.probeReply = "" })
	transport := newTestTransport(fake, func(cfg *Config) { cfg.ProbeTimeout = 100 * time.Millisecond })

	_, err := transport.Connect(context.Background(), fake.server.URL)
	require.Error(t, err)

	var connectErr *domain.ConnectError
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, domain.ConnectTimeout, connectErr.Kind)
	assert.True(t, errors.Is(err, domain.ErrTimeout))
	assert.True(t, errors.Is(err, domain.ErrTransport))
	assert.Equal(t, domain.StateDisconnected, transport.State())
}

func TestConnectFailsWithoutSessionID(t *testing.T) {
	t.Parallel()

	fake := newFakeGameServer(t, func(f *fakeGameServer) { f.handshakeBody = `0{"upgrades":["websocket"]}` })
	transport := newTestTransport(fake, nil)

	_, err := transport.Connect(context.Background(), fake.server.URL)
	var connectErr *domain.ConnectError
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, domain.ConnectMissingSession, connectErr.Kind)
	assert.False(t, fake.bound.Load())
}

func TestConnectRejectsBadToken(t *testing.T) {
	t.Parallel()

	fake := newFakeGameServer(t, nil)
	transport := newTestTransport(fake, func(cfg *Config) { cfg.Token = "wrong" })

	_, err := transport.Connect(context.Background(), fake.server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.False(t, domain.IsRetryable(err))
}

func TestConnectRejectsUnauthorizedProbe(t *testing.T) {
	t.Parallel()

	fake := newFakeGameServer(t, func(f *fakeGameServer) { f.probeReply = `44{"message":"Unauthorized"}` })
	transport := newTestTransport(fake, nil)

	_, err := transport.Connect(context.Background(), fake.server.URL)
	require.Error(t, err)
	var connectErr *domain.ConnectError
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, domain.ConnectUnauthorized, connectErr.Kind)
	assert.True(t, connectErr.Terminal())
}

func TestConnectSurfacesHandshakeFailure(t *testing.T) {
	t.Parallel()

	fake := newFakeGameServer(t, func(f *fakeGameServer) { f.handshakeStatus = http.StatusBadGateway })
	transport := newTestTransport(fake, nil)

	_, err := transport.Connect(context.Background(), fake.server.URL)
	var connectErr *domain.ConnectError
	require.True(t, errors.As(err, &connectErr))
	assert.Equal(t, domain.ConnectHandshake, connectErr.Kind)
	assert.True(t, domain.IsRetryable(err))
}

func TestEmitDropsFramesWhenNotOpen(t *testing.T) {
	t.Parallel()

	transport := New(Config{Token: testToken})
	assert.Equal(t, domain.StateDisconnected, transport.State())
	assert.False(t, transport.Emit("tapBunny", nil))
}

func TestServerCloseNotifiesAndResetsState(t *testing.T) {
	t.Parallel()

	closed := make(chan error, 1)
	fake := newFakeGameServer(t, nil)
	transport := newTestTransport(fake, func(cfg *Config) {
		cfg.OnClose = func(err error) { closed <- err }
	})

	_, err := transport.Connect(context.Background(), fake.server.URL)
	require.NoError(t, err)

	conn := fake.conn(t)
	require.NoError(t, conn.Close())

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose was not called")
	}
	assert.Equal(t, domain.StateDisconnected, transport.State())
	assert.False(t, transport.Emit("tapBunny", nil))
}

func TestCloseIsIdempotentAndSilent(t *testing.T) {
	t.Parallel()

	var closeCalls atomic.Int32
	fake := newFakeGameServer(t, nil)
	transport := newTestTransport(fake, func(cfg *Config) {
		cfg.OnClose = func(error) { closeCalls.Add(1) }
	})

	_, err := transport.Connect(context.Background(), fake.server.URL)
	require.NoError(t, err)

	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close())
	assert.Equal(t, domain.StateDisconnected, transport.State())

	_, open := transport.Session()
	assert.False(t, open)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), closeCalls.Load())
}

func TestServerPingIsAnswered(t *testing.T) {
	t.Parallel()

	fake := newFakeGameServer(t, nil)
	transport := newTestTransport(fake, nil)
	t.Cleanup(func() { _ = transport.Close() })

	_, err := transport.Connect(context.Background(), fake.server.URL)
	require.NoError(t, err)

	conn := fake.conn(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("2")))
	waitForFrame(t, fake.received, "3")
}

func TestHeartbeatRunsWhileOpen(t *testing.T) {
	t.Parallel()

	fake := newFakeGameServer(t, nil)
	transport := newTestTransport(fake, func(cfg *Config) { cfg.HeartbeatInterval = 20 * time.Millisecond })
	t.Cleanup(func() { _ = transport.Close() })

	_, err := transport.Connect(context.Background(), fake.server.URL)
	require.NoError(t, err)

	waitForFrame(t, fake.received, "2")
}

func TestDefaultTransportOnlyAnswersServerPings(t *testing.T) {
	t.Parallel()

	fake := newFakeGameServer(t, nil)
	transport := newTestTransport(fake, nil)
	t.Cleanup(func() { _ = transport.Close() })
	assert.Greater(t, transport.cfg.HeartbeatInterval, 25*time.Second)

	_, err := transport.Connect(context.Background(), fake.server.URL)
	require.NoError(t, err)

	conn := fake.conn(t)
	waitForFrame(t, fake.received, "5")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("2")))
	waitForFrame(t, fake.received, "3")

	quiet := time.After(200 * time.Millisecond)
	for {
		select {
		case frame := <-fake.received:
			assert.NotEqual(t, "2", frame, "client must not ping an EIO=4 server")
		case <-quiet:
			assert.Equal(t, domain.StateOpen, transport.State())
			return
		}
	}
}

func TestURLBuilders(t *testing.T) {
	t.Parallel()

	base, err := baseURL("api-fra-1.whitebunny.wtf")
	require.NoError(t, err)
	assert.Equal(t, "https://api-fra-1.whitebunny.wtf", base.String())
	assert.Equal(t, "wss://api-fra-1.whitebunny.wtf/socket.io/?EIO=4&transport=websocket&sid=abc123", websocketURL(base, "abc123"))
	assert.Regexp(t, `^https://api-fra-1\.whitebunny\.wtf/socket\.io/\?EIO=4&transport=polling&t=P[0-9a-z]{4}$`, pollingURL(base))

	base, err = baseURL("http://127.0.0.1:8080/ignored?x=1")
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8080/socket.io/?EIO=4&transport=websocket&sid=s", websocketURL(base, "s"))

	_, err = baseURL("ftp://example.com")
	require.Error(t, err)
	_, err = baseURL(" ")
	require.Error(t, err)
}
