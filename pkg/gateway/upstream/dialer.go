// Package upstream owns the agent-platform leg: dialing the realtime agent
// socket and preparing the settings payload that configures a session.
package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// AgentDialer connects to the realtime agent endpoint. Authentication rides
// on the websocket subprotocol list, which is how the agent platform expects
// bearer material for browserless clients.
type AgentDialer struct {
	URL              string
	APIKey           string
	HandshakeTimeout time.Duration
}

// Dial opens the agent-leg websocket. The returned response is closed here;
// callers only ever see the connection.
func (d AgentDialer) Dial(ctx context.Context) (*websocket.Conn, error) {
	if d.URL == "" {
		return nil, fmt.Errorf("agent url is required")
	}
	if d.APIKey == "" {
		return nil, fmt.Errorf("agent api key is required")
	}

	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		Subprotocols:     []string{"token", d.APIKey},
	}

	conn, resp, err := dialer.DialContext(ctx, d.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		if status != 0 && status != http.StatusSwitchingProtocols {
			return nil, fmt.Errorf("dialing agent endpoint: %w (status %d)", err, status)
		}
		return nil, fmt.Errorf("dialing agent endpoint: %w", err)
	}
	return conn, nil
}
