package bus

import (
	"sync"
	"testing"
	"time"
)

func receive[T any](t *testing.T, ch <-chan T) (T, bool) {
	t.Helper()
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	var zero T
	return zero, false
}

func TestTopic_FanOut(t *testing.T) {
	topic := NewTopic[int]("test")
	a := topic.Subscribe(4)
	b := topic.Subscribe(4)
	defer a.Cancel()
	defer b.Cancel()

	topic.Publish(7)

	for _, s := range []*Subscription[int]{a, b} {
		if v, ok := receive(t, s.C()); !ok || v != 7 {
			t.Errorf("received %d, %v; want 7, true", v, ok)
		}
	}
}

func TestTopic_NoReplay(t *testing.T) {
	topic := NewTopic[string]("test")
	topic.Publish("before")
	s := topic.Subscribe(1)
	defer s.Cancel()
	topic.Publish("after")

	if v, _ := receive(t, s.C()); v != "after" {
		t.Errorf("received %q, want after", v)
	}
}

func TestTopic_FullBufferDropsWithoutBlocking(t *testing.T) {
	topic := NewTopic[int]("test")
	slow := topic.Subscribe(1)
	fast := topic.Subscribe(3)
	defer slow.Cancel()
	defer fast.Cancel()

	done := make(chan struct{})
	go func() {
		topic.Publish(1)
		topic.Publish(2)
		topic.Publish(3)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if v, _ := receive(t, slow.C()); v != 1 {
		t.Errorf("slow got %d, want 1", v)
	}
	select {
	case v := <-slow.C():
		t.Errorf("slow got extra message %d", v)
	default:
	}
	for want := 1; want <= 3; want++ {
		if v, _ := receive(t, fast.C()); v != want {
			t.Errorf("fast got %d, want %d", v, want)
		}
	}
}

func TestSubscription_CancelClosesOnce(t *testing.T) {
	topic := NewTopic[int]("test")
	s := topic.Subscribe(1)
	if topic.Len() != 1 {
		t.Fatalf("Len = %d, want 1", topic.Len())
	}
	s.Cancel()
	s.Cancel()
	if topic.Len() != 0 {
		t.Errorf("Len after Cancel = %d, want 0", topic.Len())
	}
	if _, ok := <-s.C(); ok {
		t.Error("channel should be closed after Cancel")
	}
	topic.Publish(1)
}

func TestTopic_Close(t *testing.T) {
	topic := NewTopic[int]("test")
	s := topic.Subscribe(1)
	topic.Close()
	topic.Close()

	if _, ok := <-s.C(); ok {
		t.Error("channel should be closed after topic Close")
	}
	s.Cancel()

	late := topic.Subscribe(1)
	if _, ok := <-late.C(); ok {
		t.Error("subscription on closed topic should be closed")
	}
	topic.Publish(2)
}

func TestTopic_ConcurrentPublishAndCancel(t *testing.T) {
	topic := NewTopic[int]("test")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		s := topic.Subscribe(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				topic.Publish(j)
			}
		}()
		go func() {
			defer wg.Done()
			s.Cancel()
		}()
	}
	wg.Wait()
	if topic.Len() != 0 {
		t.Errorf("Len = %d, want 0", topic.Len())
	}
}

func TestBus_New(t *testing.T) {
	b := New()
	s := b.AuthState.Subscribe(1)
	b.AuthState.Publish(true)
	if v, _ := receive(t, s.C()); !v {
		t.Error("AuthState should deliver true")
	}
	b.Close()
	if _, ok := <-s.C(); ok {
		t.Error("Close should close subscriptions")
	}
}

func TestWatch_DeliversUntilRelease(t *testing.T) {
	topic := NewTopic[int]("test")
	var mu sync.Mutex
	var got []int
	seen := make(chan struct{}, 4)
	release := Watch(topic, 4, func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		seen <- struct{}{}
	})

	topic.Publish(1)
	topic.Publish(2)
	for i := 0; i < 2; i++ {
		select {
		case <-seen:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for watch callback")
		}
	}
	release()
	if topic.Len() != 0 {
		t.Errorf("Len after release = %d, want 0", topic.Len())
	}
	topic.Publish(3)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("got = %v, want [1 2]", got)
	}
}
