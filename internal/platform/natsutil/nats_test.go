package natsutil

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

// unusedURL returns a nats:// URL on a port nothing listens on.
func unusedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return "nats://" + addr
}

func TestConnectJetStreamWithRetry_NonPositiveTimeoutStillAttempts(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		client, err := ConnectJetStreamWithRetry(context.Background(), unusedURL(t), "test", timeout)
		if err == nil {
			client.Close()
			t.Fatalf("timeout %s: expected connection error", timeout)
		}
		if strings.Contains(err.Error(), "%!w") {
			t.Fatalf("timeout %s: error wraps nil: %v", timeout, err)
		}
		if errors.Unwrap(err) == nil {
			t.Fatalf("timeout %s: error must wrap the dial failure: %v", timeout, err)
		}
	}
}

func TestConnectJetStreamWithRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConnectJetStreamWithRetry(ctx, unusedURL(t), "test", time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReady_NilClient(t *testing.T) {
	var c *Client
	if err := c.Ready(); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
