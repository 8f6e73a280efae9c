package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[string]()
	assert.Zero(t, q.Len())

	q.Enqueue("first")
	q.Enqueue("second")
	assert.Equal(t, 2, q.Len())

	item, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "first", item)

	item, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "second", item)

	_, ok = q.Dequeue()
	assert.False(t, ok)
	assert.Zero(t, q.Len())
}

func TestQueue_Clear(t *testing.T) {
	q := New[int]()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Clear()

	assert.Equal(t, 0, q.Len())
	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestMailbox_PostSignalsReady(t *testing.T) {
	m := NewMailbox[int]()
	require.True(t, m.Post(7))

	select {
	case <-m.Ready():
	case <-time.After(time.Second):
		t.Fatal("expected ready signal after post")
	}

	v, ok := m.Receive()
	require.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = m.Receive()
	assert.False(t, ok)
}

func TestMailbox_ConcurrentPostsKeepEveryItem(t *testing.T) {
	m := NewMailbox[int]()

	const producers, perProducer = 8, 50
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				m.Post(p*perProducer + i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, m.Len())

	seen := make(map[int]bool)
	for {
		v, ok := m.Receive()
		if !ok {
			break
		}
		seen[v] = true
	}
	assert.Len(t, seen, producers*perProducer)
}

func TestMailbox_CloseRejectsPosts(t *testing.T) {
	m := NewMailbox[string]()
	m.Post("queued")
	m.Close()

	assert.False(t, m.Post("late"))
	assert.Equal(t, 0, m.Len())
}
