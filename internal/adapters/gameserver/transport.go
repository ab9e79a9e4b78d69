// Package gameserver owns the realtime session with the game backend: the
// polling handshake, the websocket upgrade with its probe exchange, the
// heartbeat and inbound frame dispatch.
package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/whitebunny-cli/internal/adapters/engineio"
	"github.com/bnema/whitebunny-cli/internal/adapters/httpclient"
	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/bnema/whitebunny-cli/internal/ports"
	"github.com/gorilla/websocket"
)

const (
	socketPath            = "/socket.io/"
	maxHandshakeBytes     = 1 << 16
	writeTimeout          = 5 * time.Second
	defaultProbeTimeout   = 8 * time.Second
	// EIO=4 servers ping and the client only answers, so the client's own
	// ping interval is pushed out of reach unless configured.
	defaultHeartbeat      = 1_000_000_000 * time.Millisecond
	defaultRequestTimeout = 15 * time.Second
	eventUpdate           = "update"
)

var errClosedDuringConnect = errors.New("session closed while connecting")

type Config struct {
	Token             string
	Headers           http.Header
	HTTPClient        *http.Client
	Dialer            *websocket.Dialer
	RequestTimeout    time.Duration
	ProbeTimeout      time.Duration
	HeartbeatInterval time.Duration
	Logger            *slog.Logger
	// OnUpdate receives every inbound "update" event.
	OnUpdate func(domain.PlayerUpdate)
	// OnClose fires when the server or the network ends an open session. It
	// is not called for Close.
	OnClose func(error)
}

type Transport struct {
	cfg       Config
	connectMu sync.Mutex

	mu      sync.RWMutex
	state   domain.ConnectionState
	session domain.Session
	conn    *websocket.Conn
	stop    chan struct{}
	gen     uint64

	writeMu sync.Mutex
}

var _ ports.Transport = (*Transport)(nil)

func New(cfg Config) *Transport {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Headers == nil {
		cfg.Headers = httpclient.BrowserHeaders()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeat
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	return &Transport{cfg: cfg, state: domain.StateDisconnected}
}

func (t *Transport) State() domain.ConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Transport) Session() (domain.Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.session, t.state == domain.StateOpen
}

// Connect replaces any existing session with a new one bound to endpoint. The
// session is usable only once the probe has been acknowledged.
func (t *Transport) Connect(ctx context.Context, endpoint string) (domain.Session, error) {
	t.connectMu.Lock()
	defer t.connectMu.Unlock()

	_ = t.Close()

	base, err := baseURL(endpoint)
	if err != nil {
		return domain.Session{}, &domain.ConnectError{Kind: domain.ConnectHandshake, Endpoint: endpoint, Err: err}
	}

	t.mu.Lock()
	t.state = domain.StateHandshaking
	gen := t.gen
	t.mu.Unlock()

	session, err := t.connect(ctx, endpoint, base, gen)
	if err != nil {
		t.mu.Lock()
		if t.gen == gen {
			t.state = domain.StateDisconnected
		}
		t.mu.Unlock()
		return domain.Session{}, err
	}

	return session, nil
}

func (t *Transport) connect(ctx context.Context, endpoint string, base *url.URL, gen uint64) (domain.Session, error) {
	logger := t.cfg.Logger.With(slog.String("server", endpoint))
	logger.Info("Connecting to server")

	sid, err := t.handshake(ctx, endpoint, base)
	if err != nil {
		return domain.Session{}, err
	}
	logger.Debug("Handshake complete", slog.String("sid", sid))

	conn, err := t.dial(ctx, endpoint, base, sid)
	if err != nil {
		return domain.Session{}, err
	}

	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		_ = conn.Close()
		return domain.Session{}, &domain.ConnectError{Kind: domain.ConnectDial, Endpoint: endpoint, Err: errClosedDuringConnect}
	}
	t.state = domain.StateProbing
	t.conn = conn
	t.mu.Unlock()

	if err := t.probe(ctx, endpoint, conn); err != nil {
		t.mu.Lock()
		if t.conn == conn {
			t.conn = nil
		}
		t.mu.Unlock()
		_ = conn.Close()
		return domain.Session{}, err
	}

	session := domain.Session{
		Endpoint:    endpoint,
		ID:          sid,
		AuthToken:   t.cfg.Token,
		ConnectedAt: time.Now(),
	}

	t.mu.Lock()
	if t.gen != gen || t.conn != conn {
		t.mu.Unlock()
		_ = conn.Close()
		return domain.Session{}, &domain.ConnectError{Kind: domain.ConnectDial, Endpoint: endpoint, Err: errClosedDuringConnect}
	}
	stop := make(chan struct{})
	t.state = domain.StateOpen
	t.session = session
	t.stop = stop
	t.mu.Unlock()

	go t.readLoop(conn)
	go t.heartbeat(stop)

	logger.Info("Connected to WebSocket", slog.String("sid", sid))
	return session, nil
}

func (t *Transport) handshake(ctx context.Context, endpoint string, base *url.URL) (string, error) {
	pollURL := pollingURL(base)

	body, status, err := t.doRequest(ctx, http.MethodGet, pollURL, "", "")
	if err != nil {
		return "", &domain.ConnectError{Kind: domain.ConnectHandshake, Endpoint: endpoint, Err: err}
	}
	if err := statusError(endpoint, "handshake", status); err != nil {
		return "", err
	}

	open, err := engineio.ParseOpen(body)
	if err != nil {
		return "", &domain.ConnectError{Kind: domain.ConnectHandshake, Endpoint: endpoint, Err: err}
	}
	if open.SID == "" {
		return "", &domain.ConnectError{Kind: domain.ConnectMissingSession, Endpoint: endpoint, Err: errors.New("no session id in handshake response")}
	}

	bindURL := pollURL + "&sid=" + url.QueryEscape(open.SID)
	_, status, err = t.doRequest(ctx, http.MethodPost, bindURL, engineio.ConnectBind, "text/plain;charset=UTF-8")
	if err != nil {
		return "", &domain.ConnectError{Kind: domain.ConnectHandshake, Endpoint: endpoint, Err: fmt.Errorf("bind session: %w", err)}
	}
	if err := statusError(endpoint, "bind session", status); err != nil {
		return "", err
	}

	return open.SID, nil
}

func (t *Transport) doRequest(ctx context.Context, method, target, body, contentType string) (string, int, error) {
	requestCtx, cancel := t.requestContext(ctx)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(requestCtx, method, target, reader)
	if err != nil {
		return "", 0, fmt.Errorf("create %s request: %w", strings.ToLower(method), err)
	}
	req.Header.Set("Authorization", t.cfg.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	httpclient.Apply(req, t.cfg.Headers)

	resp, err := t.httpClient().Do(req)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxHandshakeBytes))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	return string(data), resp.StatusCode, nil
}

func (t *Transport) dial(ctx context.Context, endpoint string, base *url.URL, sid string) (*websocket.Conn, error) {
	header := t.cfg.Headers.Clone()
	header.Set("Authorization", t.cfg.Token)

	dialCtx, cancel := t.requestContext(ctx)
	defer cancel()

	conn, resp, err := t.dialer().DialContext(dialCtx, websocketURL(base, sid), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			if statusErr := statusError(endpoint, "upgrade", resp.StatusCode); statusErr != nil {
				return nil, statusErr
			}
		}
		return nil, &domain.ConnectError{Kind: domain.ConnectDial, Endpoint: endpoint, Err: err}
	}

	return conn, nil
}

func (t *Transport) probe(ctx context.Context, endpoint string, conn *websocket.Conn) error {
	if err := t.write(conn, engineio.ProbeRequest); err != nil {
		return &domain.ConnectError{Kind: domain.ConnectDial, Endpoint: endpoint, Err: fmt.Errorf("send probe: %w", err)}
	}

	deadline := time.Now().Add(t.cfg.ProbeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return &domain.ConnectError{Kind: domain.ConnectDial, Endpoint: endpoint, Err: err}
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return &domain.ConnectError{Kind: domain.ConnectTimeout, Endpoint: endpoint, Err: fmt.Errorf("no probe acknowledge within %s", t.cfg.ProbeTimeout)}
			}
			return &domain.ConnectError{Kind: domain.ConnectDial, Endpoint: endpoint, Err: fmt.Errorf("await probe: %w", err)}
		}

		packet, err := engineio.Decode(string(message))
		if err != nil {
			t.cfg.Logger.Warn("Ignoring malformed frame during probe", slog.Any("error", err))
			continue
		}
		if packet.IsProbeAck() {
			break
		}
		if msg := engineio.ConnectErrorMessage(packet); msg != "" {
			if strings.EqualFold(msg, "unauthorized") {
				return &domain.ConnectError{Kind: domain.ConnectUnauthorized, Endpoint: endpoint, Err: errors.New("server rejected token")}
			}
			return &domain.ConnectError{Kind: domain.ConnectHandshake, Endpoint: endpoint, Err: errors.New(msg)}
		}
		t.dispatch(conn, packet)
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return &domain.ConnectError{Kind: domain.ConnectDial, Endpoint: endpoint, Err: err}
	}
	if err := t.write(conn, engineio.Upgrade); err != nil {
		return &domain.ConnectError{Kind: domain.ConnectDial, Endpoint: endpoint, Err: fmt.Errorf("send upgrade: %w", err)}
	}

	return nil
}

// Emit sends an event frame when the session is open and drops it otherwise.
func (t *Transport) Emit(event string, payload any) bool {
	frame, err := engineio.EncodeEvent(event, payload)
	if err != nil {
		t.cfg.Logger.Warn("Dropping unencodable frame", slog.String("event", event), slog.Any("error", err))
		return false
	}

	return t.send(frame, event)
}

func (t *Transport) send(frame, label string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.state != domain.StateOpen || t.conn == nil {
		t.cfg.Logger.Debug("Dropping frame, session not open", slog.String("frame", label), slog.String("state", t.state.String()))
		return false
	}

	if err := t.write(t.conn, frame); err != nil {
		t.cfg.Logger.Warn("Failed to send frame", slog.String("frame", label), slog.Any("error", err))
		return false
	}
	return true
}

func (t *Transport) write(conn *websocket.Conn, frame string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (t *Transport) heartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if t.send(engineio.Ping, "ping") {
				t.cfg.Logger.Debug("Ping sent")
			}
		}
	}
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.disconnected(conn, err)
			return
		}

		packet, err := engineio.Decode(string(message))
		if err != nil {
			t.cfg.Logger.Warn("Failed to parse message", slog.Any("error", err))
			continue
		}
		t.dispatch(conn, packet)
	}
}

func (t *Transport) dispatch(conn *websocket.Conn, packet engineio.Packet) {
	switch packet.Engine {
	case engineio.EnginePing:
		if err := t.write(conn, engineio.Pong); err != nil {
			t.cfg.Logger.Warn("Failed to answer ping", slog.Any("error", err))
		}
		return
	case engineio.EnginePong:
		t.cfg.Logger.Debug("Pong received")
		return
	case engineio.EngineClose:
		t.cfg.Logger.Info("Server closed the engine session")
		_ = conn.Close()
		return
	case engineio.EngineMessage:
	default:
		return
	}

	switch packet.Socket {
	case engineio.SocketEvent:
		t.handleEvent(packet)
	case engineio.SocketDisconnect:
		t.cfg.Logger.Info("Server disconnected the socket")
		_ = conn.Close()
	case engineio.SocketConnectError:
		msg := engineio.ConnectErrorMessage(packet)
		t.cfg.Logger.Error("Server rejected the socket", slog.String("message", msg))
		if strings.EqualFold(msg, "unauthorized") {
			_ = conn.Close()
		}
	case engineio.SocketConnect:
		t.cfg.Logger.Debug("Socket namespace connected")
	}
}

func (t *Transport) handleEvent(packet engineio.Packet) {
	if packet.Event != eventUpdate {
		t.cfg.Logger.Debug("Unhandled event", slog.String("event", packet.Event))
		return
	}

	var update domain.PlayerUpdate
	if err := json.Unmarshal(packet.Payload, &update); err != nil {
		t.cfg.Logger.Warn("Failed to parse update", slog.Any("error", err))
		return
	}
	if t.cfg.OnUpdate != nil {
		t.cfg.OnUpdate(update)
	}
}

func (t *Transport) disconnected(conn *websocket.Conn, cause error) {
	t.mu.Lock()
	if t.conn != conn {
		// Close already detached this connection.
		t.mu.Unlock()
		return
	}
	stop := t.stop
	t.conn = nil
	t.stop = nil
	t.session = domain.Session{}
	t.state = domain.StateDisconnected
	t.gen++
	t.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	_ = conn.Close()

	code := closeCode(cause)
	t.cfg.Logger.Warn("Disconnected", slog.Int("code", code))
	if t.cfg.OnClose != nil {
		t.cfg.OnClose(cause)
	}
}

// Close tears down the current session. It is safe to call at any time and
// more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	stop := t.stop
	t.gen++
	if conn == nil && t.state == domain.StateDisconnected {
		t.mu.Unlock()
		return nil
	}
	t.state = domain.StateClosing
	t.conn = nil
	t.stop = nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
	}

	var err error
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = conn.Close()
	}

	t.mu.Lock()
	t.state = domain.StateDisconnected
	t.session = domain.Session{}
	t.mu.Unlock()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close websocket: %w", err)
	}
	return nil
}

func (t *Transport) httpClient() *http.Client {
	if t.cfg.HTTPClient != nil {
		return t.cfg.HTTPClient
	}
	return http.DefaultClient
}

func (t *Transport) dialer() *websocket.Dialer {
	if t.cfg.Dialer != nil {
		return t.cfg.Dialer
	}
	return websocket.DefaultDialer
}

func (t *Transport) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.cfg.RequestTimeout)
}

func statusError(endpoint, step string, status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.ConnectError{Kind: domain.ConnectUnauthorized, Endpoint: endpoint, Err: fmt.Errorf("%s: status %d", step, status)}
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return &domain.ConnectError{Kind: domain.ConnectHandshake, Endpoint: endpoint, Err: fmt.Errorf("%s: status %d", step, status)}
	default:
		return nil
	}
}

func closeCode(err error) int {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code
	}
	return websocket.CloseAbnormalClosure
}

// baseURL accepts a bare host ("api-fra-1.example") or a full http(s) URL.
func baseURL(endpoint string) (*url.URL, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, errors.New("server endpoint is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("server endpoint must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("server endpoint host is required")
	}

	parsed.Path = ""
	parsed.RawQuery = ""
	return parsed, nil
}

func pollingURL(base *url.URL) string {
	u := *base
	u.Path = socketPath
	u.RawQuery = "EIO=4&transport=polling&t=" + cacheBuster()
	return u.String()
}

func websocketURL(base *url.URL, sid string) string {
	u := *base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = socketPath
	u.RawQuery = "EIO=4&transport=websocket&sid=" + url.QueryEscape(sid)
	return u.String()
}

func cacheBuster() string {
	var b strings.Builder
	b.WriteByte('P')
	for i := 0; i < 4; i++ {
		b.WriteString(strconv.FormatInt(int64(rand.Intn(36)), 36))
	}
	return b.String()
}
