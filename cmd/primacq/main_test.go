package main

import (
	"testing"
	"time"

	"github.com/prim-lab/primacq/monitor"
	"github.com/prim-lab/primacq/pressure"
)

func TestTeeSamplesUnblocksWhenConsumerStops(t *testing.T) {
	in := make(chan pressure.Sample, 128)
	done := make(chan struct{})
	out := teeSamples(in, monitor.New(8), done)
	// overfill the tee's buffer with nobody reading out
	for i := 0; i < 100; i++ {
		in <- pressure.Sample{Index: i}
	}
	close(done)
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return // forwarder exited and closed out
			}
		case <-deadline:
			t.Fatal("tee forwarder still running after done closed")
		}
	}
}
