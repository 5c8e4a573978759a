package sse

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/golang-sse-sdk/internal/domain"
	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/logging"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(logging.NewNop())
}

func registerClient(t *testing.T, r *Registry, id string) (*Channel, *mockSink) {
	t.Helper()
	sink := &mockSink{}
	ch := NewChannel(id, sink, logging.NewNop())
	require.NoError(t, r.Register(ch))
	return ch, sink
}

func TestRegistry_RegisterAndCount(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, 0, r.Count())

	registerClient(t, r, "a")
	registerClient(t, r, "b")
	assert.Equal(t, 2, r.Count())
}

func TestRegistry_DuplicateIDReplacesAndClosesDisplaced(t *testing.T) {
	r := newTestRegistry(t)
	old, oldSink := registerClient(t, r, "a")
	replacement, _ := registerClient(t, r, "a")

	assert.Equal(t, 1, r.Count())
	assert.False(t, old.Alive())
	assert.Equal(t, 1, oldSink.Closes())
	assert.True(t, replacement.Alive())

	// The surviving entry is the replacement.
	require.NoError(t, r.Unicast("a", "ping", "x"))
	assert.False(t, strings.Contains(oldSink.String(), "ping"))
}

func TestRegistry_UnregisterClosesChannel(t *testing.T) {
	r := newTestRegistry(t)
	ch, sink := registerClient(t, r, "a")

	r.Unregister("a")
	assert.Equal(t, 0, r.Count())
	assert.False(t, ch.Alive())
	assert.Equal(t, 1, sink.Closes())
}

func TestRegistry_UnregisterUnknownIsNoOp(t *testing.T) {
	r := newTestRegistry(t)
	registerClient(t, r, "a")

	r.Unregister("ghost")
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_Unicast(t *testing.T) {
	r := newTestRegistry(t)
	_, sink := registerClient(t, r, "a")

	require.NoError(t, r.Unicast("a", "notification", "hello"))
	assert.Equal(t, "event: notification\ndata: hello\n\n", sink.String())
}

func TestRegistry_UnicastUnknownClient(t *testing.T) {
	r := newTestRegistry(t)
	registerClient(t, r, "a")

	err := r.Unicast("ghost", "notification", "hello")
	require.ErrorIs(t, err, ErrClientNotFound)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_UnicastFailureEvictsClient(t *testing.T) {
	r := newTestRegistry(t)
	ch, sink := registerClient(t, r, "a")
	sink.setFailWrite(true)

	err := r.Unicast("a", "notification", "hello")
	require.ErrorIs(t, err, ErrSendFailed)
	assert.Equal(t, 0, r.Count())
	assert.False(t, ch.Alive())
}

func TestRegistry_BroadcastReachesAllClients(t *testing.T) {
	r := newTestRegistry(t)
	_, sinkA := registerClient(t, r, "a")
	_, sinkB := registerClient(t, r, "b")

	attempted := r.Broadcast("notification", "hi")
	assert.Equal(t, 2, attempted)
	assert.Equal(t, "event: notification\ndata: hi\n\n", sinkA.String())
	assert.Equal(t, "event: notification\ndata: hi\n\n", sinkB.String())
}

func TestRegistry_BroadcastContinuesPastFailures(t *testing.T) {
	r := newTestRegistry(t)
	_, sinkA := registerClient(t, r, "a")
	chBad, sinkBad := registerClient(t, r, "bad")
	_, sinkC := registerClient(t, r, "c")
	sinkBad.setFailWrite(true)

	attempted := r.Broadcast("notification", "hi")
	assert.Equal(t, 3, attempted)
	assert.Equal(t, 2, r.Count())
	assert.False(t, chBad.Alive())
	assert.Contains(t, sinkA.String(), "data: hi")
	assert.Contains(t, sinkC.String(), "data: hi")
}

func TestRegistry_SendKeepAlives(t *testing.T) {
	r := newTestRegistry(t)
	_, sinkA := registerClient(t, r, "a")
	_, sinkBad := registerClient(t, r, "bad")
	sinkBad.setFailWrite(true)

	attempted := r.SendKeepAlives()
	assert.Equal(t, 2, attempted)
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, ": keep-alive\n\n", sinkA.String())
}

func TestRegistry_DisconnectAll(t *testing.T) {
	r := newTestRegistry(t)
	chA, sinkA := registerClient(t, r, "a")
	chB, _ := registerClient(t, r, "b")

	count := r.DisconnectAll()
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, r.Count())
	assert.False(t, chA.Alive())
	assert.False(t, chB.Alive())
	assert.Contains(t, sinkA.String(), "event: connectionClosed")

	// Registry stays usable after a mass disconnect.
	registerClient(t, r, "c")
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_CloseRefusesNewClients(t *testing.T) {
	r := newTestRegistry(t)
	ch, _ := registerClient(t, r, "a")

	r.Close()
	assert.Equal(t, 0, r.Count())
	assert.False(t, ch.Alive())

	err := r.Register(NewChannel("b", &mockSink{}, logging.NewNop()))
	require.ErrorIs(t, err, ErrRegistryClosed)

	err = r.Unicast("a", "notification", "hi")
	require.ErrorIs(t, err, ErrRegistryClosed)
}

func TestRegistry_CloseIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	registerClient(t, r, "a")
	r.Close()
	r.Close()
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_ConcurrentRegisterAndBroadcast(t *testing.T) {
	r := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ch := NewChannel(fmt.Sprintf("client-%d", n), &mockSink{}, logging.NewNop())
			assert.NoError(t, r.Register(ch))
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Broadcast("notification", "hi")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, r.Count())
	// Every client registered before this call sees this broadcast.
	assert.Equal(t, 20, r.Broadcast("notification", "again"))
}

// recordingListener captures fan-out callbacks. Pointer type so it can be
// removed again.
type recordingListener struct {
	mu           sync.Mutex
	events       []domain.Event
	connects     int
	disconnects  int
	errs         []error
	panicOnEvent bool
}

func (l *recordingListener) OnEvent(name, data string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.panicOnEvent {
		panic("listener blew up")
	}
	l.events = append(l.events, domain.Event{Name: name, Data: data})
}

func (l *recordingListener) OnConnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connects++
}

func (l *recordingListener) OnDisconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnects++
}

func (l *recordingListener) OnError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *recordingListener) Events() []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Event, len(l.events))
	copy(out, l.events)
	return out
}

func TestRegistry_NotifyEventListeners(t *testing.T) {
	r := newTestRegistry(t)
	first := &recordingListener{}
	second := &recordingListener{}
	r.AddEventListener(first)
	r.AddEventListener(second)

	r.NotifyEventListeners("notification", "hi")

	require.Len(t, first.Events(), 1)
	require.Len(t, second.Events(), 1)
	assert.Equal(t, "notification", first.Events()[0].Name)
	assert.Equal(t, "hi", first.Events()[0].Data)
}

func TestRegistry_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	r := newTestRegistry(t)
	bad := &recordingListener{panicOnEvent: true}
	good := &recordingListener{}
	r.AddEventListener(bad)
	r.AddEventListener(good)

	r.NotifyEventListeners("notification", "hi")
	require.Len(t, good.Events(), 1)
}

func TestRegistry_RemoveEventListener(t *testing.T) {
	r := newTestRegistry(t)
	first := &recordingListener{}
	second := &recordingListener{}
	r.AddEventListener(first)
	r.AddEventListener(second)

	r.RemoveEventListener(first)
	r.NotifyEventListeners("notification", "hi")

	assert.Empty(t, first.Events())
	require.Len(t, second.Events(), 1)
}

func TestRegistry_RemoveFuncListenerDoesNotPanic(t *testing.T) {
	r := newTestRegistry(t)
	fn := domain.EventListenerFunc(func(name, data string) {})
	r.AddEventListener(fn)

	assert.NotPanics(t, func() {
		r.RemoveEventListener(fn)
	})
}

func TestRegistry_RemoveNilListenerDoesNotPanic(t *testing.T) {
	r := newTestRegistry(t)
	l := &recordingListener{}
	r.AddEventListener(l)

	assert.NotPanics(t, func() {
		r.RemoveEventListener(nil)
	})

	r.NotifyEventListeners("notification", "hi")
	require.Len(t, l.Events(), 1)
}

func TestRegistry_OptionalListenerHooks(t *testing.T) {
	r := newTestRegistry(t)
	l := &recordingListener{}
	r.AddEventListener(l)

	r.notifyConnected()
	r.notifyDisconnected()
	r.notifyError(assert.AnError)

	assert.Equal(t, 1, l.connects)
	assert.Equal(t, 1, l.disconnects)
	require.Len(t, l.errs, 1)
}
