package utils

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractFromDBURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "postgresql://user:pw@dbhost:5433/stats", "dbhost:5433"},
		{"default port", "postgresql://user:pw@dbhost/stats", "dbhost:5432"},
		{"short scheme", "postgres://user@localhost:5432/stats", "localhost:5432"},
		{"no match", "mysql://user@localhost/stats", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromDBURL(tt.url))
		})
	}
}

func TestExtractFromNatsURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "nats://localhost:4223", "localhost:4223"},
		{"default port", "nats://natshost", "natshost:4222"},
		{"with credentials", "nats://user:pw@natshost:4222", "natshost:4222"},
		{"no match", "http://natshost", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromNatsURL(tt.url))
		})
	}
}

func TestWaitForTCP(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer l.Close()

	assert.NoError(t, WaitForTCP(context.Background(), l.Addr().String(), time.Second))
}

func TestWaitForTCPTimeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	assert.Error(t, WaitForTCP(context.Background(), addr, 300*time.Millisecond))
}
