package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_DeduplicatesConcurrentCalls(t *testing.T) {
	var g SingleFlight
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			val, err, _ := g.Do("fixtures/19001", func() (any, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "payload", nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
			if val != "payload" {
				t.Errorf("unexpected shared value: %v", val)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
}

func TestSingleFlight_ErrorsAreShared(t *testing.T) {
	var g SingleFlight
	boom := errors.New("upstream down")

	_, err, shared := g.Do("key", func() (any, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if shared {
		t.Fatal("single caller must not be marked as shared")
	}
}

func TestSingleFlight_KeyIsReusableAfterCompletion(t *testing.T) {
	var g SingleFlight
	var counter int32

	for i := 0; i < 2; i++ {
		_, err, _ := g.Do("key", func() (any, error) {
			atomic.AddInt32(&counter, 1)
			return nil, nil
		})
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&counter); got != 2 {
		t.Fatalf("sequential calls should both run, got %d", got)
	}
}
