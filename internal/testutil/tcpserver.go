package testutil

import (
	"net"
	"sync"
	"testing"
)

// StartTCPServer accepts connections on 127.0.0.1 and runs handle for
// each one on its own goroutine.  Cleanup closes the listener and waits
// for every handler to return.
func StartTCPServer(t testing.TB, handle func(net.Conn)) net.Listener {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer c.Close()
				handle(c)
			}()
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		wg.Wait()
	})
	return ln
}
