package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/securechat-go/internal/dependencies/mocks"
	"github.com/mcoot/securechat-go/internal/model"
	"github.com/mcoot/securechat-go/internal/services/credential"
	"github.com/mcoot/securechat-go/internal/services/presence"
	"github.com/mcoot/securechat-go/internal/services/ratelimit"
	"github.com/mcoot/securechat-go/internal/storage/memory"
)

type sentEvent struct {
	Type    model.EventType
	Payload any
}

type fakeConn struct {
	id model.ConnID

	mu     sync.Mutex
	events []sentEvent
}

func (c *fakeConn) ID() model.ConnID { return c.id }

func (c *fakeConn) Send(t model.EventType, p any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, sentEvent{Type: t, Payload: p})
	return true
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) sent() []sentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeConn) lastOfType(t model.EventType) (sentEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == t {
			return c.events[i], true
		}
	}
	return sentEvent{}, false
}

type ControllerSuite struct {
	suite.Suite
	registry   *presence.Registry
	limiter    *ratelimit.Limiter
	store      *memory.Store
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.store = memory.New()
	s.registry = presence.New(logger)
	s.limiter = ratelimit.New(clk, ratelimit.DefaultConfig())
	creds := credential.New(s.store, clk, logger)
	s.controller = New(creds, s.registry, s.limiter, s.store, logger)
	s.ctx = context.Background()
}

func (s *ControllerSuite) register(conn *fakeConn, username model.Username) {
	s.controller.Register(s.ctx, conn, username, "hunter22")
	ev, ok := conn.lastOfType(model.EventRegistrationResponse)
	s.Require().True(ok)
	s.Require().True(ev.Payload.(model.ResponsePayload).Success)
}

func (s *ControllerSuite) TestRegisterBindsAndResponds() {
	conn := &fakeConn{id: "h1"}

	s.controller.Register(s.ctx, conn, "alice", "hunter22")

	events := conn.sent()
	s.Require().Len(events, 1)
	s.Equal(model.EventRegistrationResponse, events[0].Type)
	s.Equal(model.ResponsePayload{Success: true, Message: "Welcome alice!"}, events[0].Payload)
	s.True(s.registry.IsOnline("alice"))

	marker, err := s.store.GetConnectionMarker(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.ConnID("h1"), marker)
}

func (s *ControllerSuite) TestRegisterNotifiesPeersOnly() {
	aliceConn := &fakeConn{id: "h1"}
	s.register(aliceConn, "alice")

	bobConn := &fakeConn{id: "h2"}
	s.register(bobConn, "bob")

	// Alice hears that bob joined
	ev, ok := aliceConn.lastOfType(model.EventUserJoined)
	s.Require().True(ok)
	s.Equal(model.PresencePayload{Username: "bob"}, ev.Payload)

	// Bob does not hear about himself
	_, ok = bobConn.lastOfType(model.EventUserJoined)
	s.False(ok)
}

func (s *ControllerSuite) TestRegisterFailureMessages() {
	s.register(&fakeConn{id: "h1"}, "alice")

	cases := []struct {
		name     string
		username model.Username
		password string
		want     string
	}{
		{"bad characters", "al ice", "hunter22", "Invalid username! Use only letters, numbers, and underscores."},
		{"too short", "al", "hunter22", "Invalid username! Use only letters, numbers, and underscores."},
		{"short password", "newuser", "12345", "Password must be at least 6 characters"},
		{"taken", "alice", "hunter22", "Username already taken"},
		{"taken case-insensitively", "ALICE", "hunter22", "Username already taken"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			conn := &fakeConn{id: model.ConnID("h-" + tc.name)}
			s.controller.Register(s.ctx, conn, tc.username, tc.password)

			ev, ok := conn.lastOfType(model.EventRegistrationResponse)
			s.Require().True(ok)
			s.Equal(model.ResponsePayload{Success: false, Message: tc.want}, ev.Payload)
			s.False(s.registry.IsOnline(tc.username))
		})
	}
}

func (s *ControllerSuite) TestLoginSucceedsWithCorrectCredentials() {
	s.register(&fakeConn{id: "h1"}, "alice")
	s.controller.Disconnect(s.ctx, &fakeConn{id: "h1"})

	conn := &fakeConn{id: "h2"}
	s.controller.Login(s.ctx, conn, "alice", "hunter22")

	ev, ok := conn.lastOfType(model.EventLoginResponse)
	s.Require().True(ok)
	s.Equal(model.ResponsePayload{Success: true, Message: "Welcome back, alice!"}, ev.Payload)
	s.True(s.registry.IsOnline("alice"))
}

func (s *ControllerSuite) TestLoginDoesNotAnnounceJoin() {
	s.register(&fakeConn{id: "h1"}, "alice")
	bobConn := &fakeConn{id: "h2"}
	s.register(bobConn, "bob")
	s.controller.Disconnect(s.ctx, bobConn)

	watcher, _ := s.registry.Resolve("alice")
	before := len(watcher.(*fakeConn).sent())

	s.controller.Login(s.ctx, &fakeConn{id: "h3"}, "bob", "hunter22")

	// Only registration announces user_joined; logins are silent
	after := watcher.(*fakeConn).sent()[before:]
	for _, ev := range after {
		s.NotEqual(model.EventUserJoined, ev.Type)
	}
}

func (s *ControllerSuite) TestLoginRejectsBadCredentials() {
	s.register(&fakeConn{id: "h1"}, "alice")

	cases := []struct {
		name     string
		username model.Username
		password string
	}{
		{"wrong password", "alice", "not-the-password"},
		{"unknown user", "mallory", "hunter22"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			conn := &fakeConn{id: model.ConnID("h-" + tc.name)}
			s.controller.Login(s.ctx, conn, tc.username, tc.password)

			ev, ok := conn.lastOfType(model.EventLoginResponse)
			s.Require().True(ok)
			s.Equal(model.ResponsePayload{Success: false, Message: "Invalid username or password"}, ev.Payload)
		})
	}
}

func (s *ControllerSuite) TestReloginMovesBinding() {
	first := &fakeConn{id: "h1"}
	s.register(first, "alice")

	second := &fakeConn{id: "h2"}
	s.controller.Login(s.ctx, second, "alice", "hunter22")

	resolved, ok := s.registry.Resolve("alice")
	s.Require().True(ok)
	s.Equal(model.ConnID("h2"), resolved.ID())

	// The stale connection's eventual disconnect must not take alice
	// offline or announce a departure
	s.controller.Disconnect(s.ctx, first)
	s.True(s.registry.IsOnline("alice"))
	_, sawLeft := second.lastOfType(model.EventUserLeft)
	s.False(sawLeft)
}

func (s *ControllerSuite) TestDisconnectNotifiesPeers() {
	aliceConn := &fakeConn{id: "h1"}
	s.register(aliceConn, "alice")
	bobConn := &fakeConn{id: "h2"}
	s.register(bobConn, "bob")

	s.controller.Disconnect(s.ctx, bobConn)

	ev, ok := aliceConn.lastOfType(model.EventUserLeft)
	s.Require().True(ok)
	s.Equal(model.PresencePayload{Username: "bob"}, ev.Payload)
	s.False(s.registry.IsOnline("bob"))

	marker, err := s.store.GetConnectionMarker(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(model.ConnID(""), marker)
}

func (s *ControllerSuite) TestDisconnectResetsRateLimit() {
	conn := &fakeConn{id: "h1"}
	s.register(conn, "alice")

	for i := 0; i < 5; i++ {
		s.Require().True(s.limiter.Admit("alice"))
	}
	s.Require().False(s.limiter.Admit("alice"))

	s.controller.Disconnect(s.ctx, conn)

	// A fresh session starts with a clean window
	s.True(s.limiter.Admit("alice"))
}

func (s *ControllerSuite) TestDisconnectUnauthenticatedIsNoop() {
	aliceConn := &fakeConn{id: "h1"}
	s.register(aliceConn, "alice")
	before := len(aliceConn.sent())

	s.controller.Disconnect(s.ctx, &fakeConn{id: "never-authed"})

	s.Len(aliceConn.sent(), before)
}
