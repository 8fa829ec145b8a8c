package notify

import (
	"errors"
	"sync"
	"testing"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []Notification
	err error
}

func (r *recordingNotifier) Notify(n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestRouterNotifyAndWaitFansOutToAllChannels(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{err: errors.New("webhook down")}
	router := NewRouter(nil, a, b)

	router.NotifyAndWait(Notification{Kind: KindApproval, SessionID: "s1"})

	if a.count() != 1 {
		t.Errorf("channel a got %d notifications, want 1", a.count())
	}
	if b.count() != 1 {
		t.Errorf("channel b got %d notifications, want 1", b.count())
	}
}

// blockingNotifier does not return from Notify until release is closed.
type blockingNotifier struct {
	release chan struct{}
}

func (b *blockingNotifier) Notify(Notification) error {
	<-b.release
	return nil
}

func TestRouterNotifyReturnsImmediately(t *testing.T) {
	slow := &blockingNotifier{release: make(chan struct{})}
	defer close(slow.release)
	router := NewRouter(nil, slow)
	// If Notify waited for the channel, this call would never return.
	if err := router.Notify(Notification{Kind: KindError, SessionID: "s2"}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
}
