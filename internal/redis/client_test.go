package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestConnect(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+s.Addr())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	if _, err := Connect(context.Background(), "redis://"+addr); err == nil {
		t.Error("Connect() to closed server succeeded, want error")
	}
}

func TestNewClient_BadURL(t *testing.T) {
	if _, err := NewClient("http://not-redis"); err == nil {
		t.Error("NewClient() with non-redis scheme succeeded, want error")
	}
}
