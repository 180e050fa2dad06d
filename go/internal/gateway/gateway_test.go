package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamscore/go/internal/events"
	"github.com/mcdev12/streamscore/go/internal/metrics"
	"github.com/mcdev12/streamscore/go/internal/models"
	"github.com/mcdev12/streamscore/go/internal/scoreboard"
	"github.com/mcdev12/streamscore/go/internal/sports"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testGateway struct {
	store   *scoreboard.Store
	service *Service
	metrics *metrics.WebSocketMetrics
	server  *httptest.Server
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	return newTestGatewayWithConfig(t, DefaultConfig())
}

func newTestGatewayWithConfig(t *testing.T, config Config) *testGateway {
	t.Helper()

	clock := clockwork.NewFakeClock()
	store := scoreboard.NewStore(clock)
	m := metrics.NewWebSocketMetrics(metrics.NewRegistry())
	service := NewService(config, store, sports.NewDefaultRegistry(), clock, m)

	mux := http.NewServeMux()
	service.RegisterRoutes(mux)
	server := httptest.NewServer(mux)

	ctx, cancel := context.WithCancel(context.Background())
	go service.Start(ctx)
	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	return &testGateway{store: store, service: service, metrics: m, server: server}
}

func (g *testGateway) dial(t *testing.T, role Role) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws?role=" + string(role)
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readStateUpdate(t *testing.T, conn *ws.Conn) (models.MatchState, uint64) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	env, err := events.Decode(frame)
	require.NoError(t, err)
	require.Equal(t, events.TypeStateUpdate, env.Event)

	state, err := env.MatchState()
	require.NoError(t, err)
	return state, env.Revision
}

func sendUpdate(t *testing.T, conn *ws.Conn, state models.MatchState) {
	t.Helper()
	env, err := events.NewUpdateState(state)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(env))
}

func waitForConnections(g *testGateway, expected int) bool {
	for i := 0; i < 200; i++ {
		if g.service.GetStats().TotalConnections == expected {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestGateway_InitialSnapshotOnConnect(t *testing.T) {
	g := newTestGateway(t)

	conn := g.dial(t, RoleOverlay)
	state, rev := readStateUpdate(t, conn)

	assert.Equal(t, models.DefaultMatchState(), state)
	assert.Equal(t, uint64(0), rev)
}

func TestGateway_LateJoinerGetsLatestState(t *testing.T) {
	g := newTestGateway(t)

	var last models.MatchState
	for i := 1; i <= 5; i++ {
		s := models.DefaultMatchState()
		s.HomeScore = i
		g.store.Replace(s)
		last = s
	}

	conn := g.dial(t, RoleController)
	state, rev := readStateUpdate(t, conn)

	assert.Equal(t, last, state)
	assert.Equal(t, uint64(5), rev)
}

func TestGateway_BroadcastReachesEveryRole(t *testing.T) {
	g := newTestGateway(t)

	controller := g.dial(t, RoleController)
	other := g.dial(t, RoleController)
	overlay := g.dial(t, RoleOverlay)
	for _, c := range []*ws.Conn{controller, other, overlay} {
		readStateUpdate(t, c)
	}
	require.True(t, waitForConnections(g, 3))

	update := models.DefaultMatchState()
	update.HomeTeam = "Falcons"
	update.AwayScore = 2
	sendUpdate(t, controller, update)

	for _, c := range []*ws.Conn{controller, other, overlay} {
		state, rev := readStateUpdate(t, c)
		assert.Equal(t, update, state)
		assert.Equal(t, uint64(1), rev)
	}
	assert.Equal(t, update, g.store.Current().State)
}

func TestGateway_RoundTripKeepsEveryField(t *testing.T) {
	g := newTestGateway(t)
	controller := g.dial(t, RoleController)
	readStateUpdate(t, controller)

	update := models.MatchState{
		Sport:     models.SportBaseball,
		HomeTeam:  "Cubs",
		AwayTeam:  "Sox",
		HomeScore: 4,
		AwayScore: 11,
		HomeColor: "#0e3386",
		AwayColor: "#27251f",
		HomeLogo:  "data:image/png;base64," + strings.Repeat("QUJD", 50_000),
		AwayLogo:  "data:image/svg+xml;base64,PHN2Zz48L3N2Zz4=",
		Period:    "Bot 7",
		Clock:     "∞",
	}
	sendUpdate(t, controller, update)

	state, _ := readStateUpdate(t, controller)
	assert.Equal(t, update, state)
}

func TestGateway_MessagesFromOneClientApplyInOrder(t *testing.T) {
	g := newTestGateway(t)
	controller := g.dial(t, RoleController)
	readStateUpdate(t, controller)

	for i := 1; i <= 20; i++ {
		s := models.DefaultMatchState()
		s.AwayScore = i
		sendUpdate(t, controller, s)
	}

	var last models.MatchState
	for i := 1; i <= 20; i++ {
		last, _ = readStateUpdate(t, controller)
		assert.Equal(t, i, last.AwayScore)
	}
	assert.Equal(t, 20, g.store.Current().State.AwayScore)
}

func TestGateway_UpdatesApplyFromEveryRole(t *testing.T) {
	g := newTestGateway(t)
	overlay := g.dial(t, RoleOverlay)
	readStateUpdate(t, overlay)

	s := models.DefaultMatchState()
	s.HomeScore = 9
	sendUpdate(t, overlay, s)
	require.NoError(t, overlay.WriteMessage(ws.TextMessage, []byte("garbage")))

	state, rev := readStateUpdate(t, overlay)
	assert.Equal(t, 9, state.HomeScore)
	assert.Equal(t, uint64(1), rev)
	assert.Equal(t, 9, g.store.Current().State.HomeScore)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(g.metrics.MessagesReceived.WithLabelValues("invalid")) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(g.metrics.MessagesReceived.WithLabelValues("applied")))
}

func TestGateway_ZeroSendBufferStillGetsInitialSnapshot(t *testing.T) {
	config := DefaultConfig()
	config.ConnectionConfig.SendBufferSize = 0
	g := newTestGatewayWithConfig(t, config)

	conn := g.dial(t, RoleController)
	state, rev := readStateUpdate(t, conn)

	assert.Equal(t, models.DefaultMatchState(), state)
	assert.Equal(t, uint64(0), rev)
}

func TestGateway_SlowClientIsClosed(t *testing.T) {
	config := DefaultConfig()
	config.ConnectionConfig.SendBufferSize = 1
	g := newTestGatewayWithConfig(t, config)
	cm := g.service.connectionManager

	// a connection with no write pump never drains its buffer
	serverConns := make(chan *ws.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := cm.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(server.Close)

	client, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	slow := &Connection{
		ID:      "slow",
		Role:    RoleOverlay,
		Conn:    <-serverConns,
		Send:    make(chan []byte, cm.config.SendBufferSize),
		Manager: cm,
	}
	cm.registerConnection(slow)
	require.Equal(t, 1, cm.GetConnectionStats().TotalConnections)

	s := models.DefaultMatchState()
	s.HomeScore = 1
	g.store.Replace(s)
	assert.Equal(t, 1, cm.GetConnectionStats().TotalConnections)

	s.HomeScore = 2
	g.store.Replace(s)

	assert.Equal(t, 0, cm.GetConnectionStats().TotalConnections)
	assert.Equal(t, 1.0, testutil.ToFloat64(g.metrics.SlowClientsClosed))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = client.ReadMessage()
	assert.True(t, ws.IsCloseError(err, ws.CloseAbnormalClosure), "expected the socket to be closed, got %v", err)
}

func TestGateway_MalformedFramesAreDropped(t *testing.T) {
	g := newTestGateway(t)
	controller := g.dial(t, RoleController)
	readStateUpdate(t, controller)

	require.NoError(t, controller.WriteMessage(ws.TextMessage, []byte(`{"event":"updateState","data":{"homeScore":"x"}}`)))
	require.NoError(t, controller.WriteMessage(ws.TextMessage, []byte(`{"event":"hello"}`)))

	// the connection stays usable after bad frames
	s := models.DefaultMatchState()
	s.Clock = "00:42"
	sendUpdate(t, controller, s)

	state, rev := readStateUpdate(t, controller)
	assert.Equal(t, "00:42", state.Clock)
	assert.Equal(t, uint64(1), rev)
}

func TestGateway_StatsAndDisconnect(t *testing.T) {
	g := newTestGateway(t)

	controller := g.dial(t, RoleController)
	overlay := g.dial(t, RoleOverlay)
	readStateUpdate(t, controller)
	readStateUpdate(t, overlay)
	require.True(t, waitForConnections(g, 2))

	resp, err := http.Get(g.server.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats ConnectionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, ConnectionStats{TotalConnections: 2, Controllers: 1, Overlays: 1}, stats)

	overlay.Close()
	assert.True(t, waitForConnections(g, 1))
}

func TestGateway_RejectsUnknownRole(t *testing.T) {
	g := newTestGateway(t)

	resp, err := http.Get(g.server.URL + "/ws?role=referee")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStateAPI_GetAndPut(t *testing.T) {
	g := newTestGateway(t)
	overlay := g.dial(t, RoleOverlay)
	readStateUpdate(t, overlay)

	update := models.DefaultMatchState()
	update.Sport = models.SportFootball
	update.Period = "2nd Q"
	body, err := json.Marshal(update)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, g.server.URL+"/api/state", bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	pushed, _ := readStateUpdate(t, overlay)
	assert.Equal(t, update, pushed)
	assert.Equal(t, "api", g.store.Current().Origin)

	resp, err = http.Get(g.server.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var env events.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	got, err := env.MatchState()
	require.NoError(t, err)
	assert.Equal(t, update, got)
	assert.Equal(t, uint64(1), env.Revision)
}

func TestStateAPI_Errors(t *testing.T) {
	g := newTestGateway(t)

	req, err := http.NewRequest(http.MethodPut, g.server.URL+"/api/state", strings.NewReader("{"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(g.server.URL+"/api/state", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	assert.Equal(t, uint64(0), g.store.Current().Revision)
}

func TestStateAPI_Sports(t *testing.T) {
	g := newTestGateway(t)

	resp, err := http.Get(g.server.URL + "/api/sports")
	require.NoError(t, err)
	defer resp.Body.Close()

	var presets []models.SportPreset
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&presets))
	require.Len(t, presets, 4)
	assert.Equal(t, models.SportVolleyball, presets[0].Sport)
	assert.Equal(t, "Inning", presets[3].PeriodLabel)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleController, role)

	role, err = ParseRole("overlay")
	require.NoError(t, err)
	assert.Equal(t, RoleOverlay, role)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}
