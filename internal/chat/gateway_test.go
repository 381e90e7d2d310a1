package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mintsniper/internal/domain"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGatewaySessionDecodesEnvelopes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token-123" {
			t.Errorf("Authorization = %q, want token-123", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		frames := []string{
			`not json at all`,
			`{"platform":"CARRIERPIGEON","channelId":"C1","authorId":"A1","text":"bad platform"}`,
			`{"platform":"TELEGRAM","channelId":"C1","authorId":"A1","text":"new gem inside","receivedAt":42}`,
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection open until the client is done.
		conn.ReadMessage()
	}))
	defer srv.Close()

	s := NewGatewaySession(wsURL(srv), "token-123", SessionInfo{Platform: domain.PlatformTelegram, Label: "tg"}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	got, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	want := domain.Message{
		Platform:   domain.PlatformTelegram,
		ChannelID:  "C1",
		AuthorID:   "A1",
		Text:       "new gem inside",
		ReceivedAt: 42,
	}
	if got != want {
		t.Fatalf("Next = %+v, want %+v", got, want)
	}
}

func TestGatewaySessionConnectUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewGatewaySession(wsURL(srv), "stale-token", SessionInfo{Platform: domain.PlatformDiscord, Label: "dc"}, zerolog.Nop())
	err := s.Connect(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Connect = %v, want ErrUnauthorized", err)
	}
}

func TestGatewaySessionPolicyViolationIsUnauthorized(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "revoked"),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}))
	defer srv.Close()

	s := NewGatewaySession(wsURL(srv), "", SessionInfo{Platform: domain.PlatformTelegram, Label: "tg"}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	_, err := s.Next(ctx)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Next = %v, want ErrUnauthorized", err)
	}
}

func TestGatewaySessionNextBeforeConnect(t *testing.T) {
	s := NewGatewaySession("ws://127.0.0.1:1", "", SessionInfo{Platform: domain.PlatformTelegram, Label: "tg"}, zerolog.Nop())
	if _, err := s.Next(context.Background()); err == nil {
		t.Fatal("Next before Connect returned no error")
	}
}
