package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mintsniper/internal/domain"
)

// GatewaySession consumes already-normalized message JSON from a chat
// gateway over a WebSocket. The gateway owns the platform wire protocols;
// this side only decodes the common envelope.
type GatewaySession struct {
	endpoint  string
	authToken string
	info      SessionInfo
	logger    zerolog.Logger

	conn *websocket.Conn
	done chan struct{}
}

// gatewayMessage is the normalized envelope published by the gateway.
type gatewayMessage struct {
	Platform   string `json:"platform"`
	ChannelID  string `json:"channelId"`
	AuthorID   string `json:"authorId"`
	Text       string `json:"text"`
	ReceivedAt int64  `json:"receivedAt"`
}

// NewGatewaySession creates a session reading one gateway stream.
func NewGatewaySession(endpoint, authToken string, info SessionInfo, logger zerolog.Logger) *GatewaySession {
	return &GatewaySession{
		endpoint:  endpoint,
		authToken: authToken,
		info:      info,
		logger: logger.With().
			Str("component", "chat").
			Str("session", info.Label).
			Logger(),
	}
}

// Compile-time interface check.
var _ Session = (*GatewaySession)(nil)

// Describe returns the session identity.
func (s *GatewaySession) Describe() SessionInfo {
	return s.info
}

// Connect dials the gateway. A 401 or 403 handshake response maps to
// ErrUnauthorized so the runner stops retrying this session.
func (s *GatewaySession) Connect(ctx context.Context) error {
	header := http.Header{}
	if s.authToken != "" {
		header.Set("Authorization", s.authToken)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, s.endpoint, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("dial %s: status %d: %w", s.endpoint, resp.StatusCode, ErrUnauthorized)
		}
		return fmt.Errorf("dial %s: %w", s.endpoint, err)
	}

	s.conn = conn
	s.done = make(chan struct{})

	// Unblock pending reads when ctx is cancelled.
	go func(conn *websocket.Conn, done chan struct{}) {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}(conn, s.done)

	return nil
}

// Next blocks for the next normalized message. Malformed envelopes are
// dropped and the read continues; a policy-violation close maps to
// ErrUnauthorized.
func (s *GatewaySession) Next(ctx context.Context) (domain.Message, error) {
	if s.conn == nil {
		return domain.Message{}, fmt.Errorf("session not connected")
	}

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return domain.Message{}, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				return domain.Message{}, fmt.Errorf("read: %v: %w", err, ErrUnauthorized)
			}
			return domain.Message{}, fmt.Errorf("read: %w", err)
		}

		var env gatewayMessage
		if err := json.Unmarshal(payload, &env); err != nil {
			s.logger.Debug().Err(err).Msg("malformed envelope dropped")
			continue
		}

		platform := domain.Platform(env.Platform)
		if !platform.IsValid() || env.Text == "" {
			s.logger.Debug().Str("platform", env.Platform).Msg("invalid envelope dropped")
			continue
		}

		receivedAt := env.ReceivedAt
		if receivedAt == 0 {
			receivedAt = time.Now().UnixMilli()
		}

		return domain.Message{
			Platform:   platform,
			ChannelID:  env.ChannelID,
			AuthorID:   env.AuthorID,
			Text:       env.Text,
			ReceivedAt: receivedAt,
		}, nil
	}
}

// Close releases the connection.
func (s *GatewaySession) Close() error {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
