package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/cachemir/wordtally/internal/logger"
	"github.com/cachemir/wordtally/pkg/client"
	"github.com/cachemir/wordtally/pkg/store"
)

func startServer(t *testing.T) (*Server, *store.Store, string) {
	t.Helper()

	st := store.New()
	srv := New("127.0.0.1:0", st, WithLogger(logger.Discard()))
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	t.Cleanup(func() {
		_ = srv.Stop()
		select {
		case err := <-done:
			if !errors.Is(err, ErrServerClosed) {
				t.Errorf("Serve returned %v, want ErrServerClosed", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Serve did not return after Stop")
		}
	})

	return srv, st, srv.Addr().String()
}

func dial(t *testing.T, addr string) *client.Client {
	t.Helper()
	c, err := client.Dial(context.Background(), addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestGetAbsentKey(t *testing.T) {
	_, _, addr := startServer(t)
	c := dial(t, addr)

	value, ok, err := c.Get("never")
	if err != nil {
		t.Fatalf("Get on absent key should not fail: %v", err)
	}
	if ok || value != nil {
		t.Errorf("Expected no value, got %q (ok: %t)", value, ok)
	}
}

func TestSetThenGet(t *testing.T) {
	_, st, addr := startServer(t)
	c := dial(t, addr)

	if err := c.Set("cat", []byte("2")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, ok, err := c.Get("cat")
	if err != nil || !ok || string(value) != "2" {
		t.Errorf("Expected 2, got %q (ok: %t, error: %v)", value, ok, err)
	}

	if stored, _ := st.Get("cat"); string(stored) != "2" {
		t.Errorf("Store holds %q", stored)
	}
}

func TestEmptyKeyKeepsConnection(t *testing.T) {
	_, _, addr := startServer(t)
	c := dial(t, addr)

	if err := c.Set("", []byte("1")); !errors.Is(err, client.ErrServer) {
		t.Errorf("Expected ErrServer, got %v", err)
	}
	if err := c.Set("dog", []byte("1")); err != nil {
		t.Errorf("Connection should survive a rejected key: %v", err)
	}
}

func TestUnsupportedCommandEndsConnection(t *testing.T) {
	srv, _, addr := startServer(t)
	c := dial(t, addr)

	err := c.Ping()
	if !errors.Is(err, client.ErrServer) {
		t.Fatalf("Expected ErrServer for PING, got %v", err)
	}

	if _, _, err := c.Get("cat"); err == nil {
		t.Error("Connection should be closed after an unsupported command")
	}

	waitFor(t, "connection counter to drop", func() bool { return srv.ActiveConnections() == 0 })
}

func TestDecodeErrorIsolation(t *testing.T) {
	_, st, addr := startServer(t)

	good := dial(t, addr)
	if err := good.Set("cat", []byte("1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	bad, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer bad.Close()

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, 1<<30)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = bad.Write(header)
	}()
	go func() {
		defer wg.Done()
		if err := good.Set("cat", []byte("5")); err != nil {
			t.Errorf("Set on healthy connection failed: %v", err)
		}
	}()
	wg.Wait()

	_ = bad.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := bad.Read(make([]byte, 1)); err == nil {
		t.Error("Server should close the connection that sent a bad frame")
	}

	value, ok, err := good.Get("cat")
	if err != nil || !ok || string(value) != "5" {
		t.Errorf("Expected 5, got %q (ok: %t, error: %v)", value, ok, err)
	}
	if stored, _ := st.Get("cat"); string(stored) != "5" {
		t.Errorf("Store holds %q", stored)
	}
}

func TestConnectionCounter(t *testing.T) {
	srv, _, addr := startServer(t)

	var clients []*client.Client
	for i := 0; i < 3; i++ {
		c, err := client.Dial(context.Background(), addr)
		if err != nil {
			t.Fatalf("Dial failed: %v", err)
		}
		if _, _, err := c.Get("warmup"); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		clients = append(clients, c)
	}

	if n := srv.ActiveConnections(); n != 3 {
		t.Errorf("Expected 3 active connections, got %d", n)
	}

	for _, c := range clients {
		_ = c.Close()
	}
	waitFor(t, "all connections to end", func() bool { return srv.ActiveConnections() == 0 })
}

func TestConcurrentClientsDisjointKeys(t *testing.T) {
	_, st, addr := startServer(t)

	const workers = 8
	const rounds = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			c, err := client.Dial(context.Background(), addr)
			if err != nil {
				t.Errorf("Dial failed: %v", err)
				return
			}
			defer c.Close()

			key := fmt.Sprintf("key%d", w)
			for i := 1; i <= rounds; i++ {
				if err := c.Set(key, []byte(fmt.Sprint(i))); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		value, _ := st.Get(fmt.Sprintf("key%d", w))
		if string(value) != fmt.Sprint(rounds) {
			t.Errorf("key%d: expected %d, got %q", w, rounds, value)
		}
	}
}

func TestServeWithoutListen(t *testing.T) {
	srv := New("127.0.0.1:0", store.New(), WithLogger(logger.Discard()))
	if err := srv.Serve(); err == nil {
		t.Error("Serve without Listen should fail")
	}
}
