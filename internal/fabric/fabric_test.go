package fabric

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortFIFOPerSender(t *testing.T) {
	p := NewPort[int](Infinite())
	for i := 0; i < 5; i++ {
		p.Send(i)
	}
	for i := 0; i < 5; i++ {
		v, ok := p.Receive()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestPortTryReceiveEmpty(t *testing.T) {
	p := NewPort[int](Infinite())
	_, err := p.TryReceive()
	assert.ErrorIs(t, err, ErrNoData)

	p.Send(42)
	v, err := p.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPortCloseDrainsThenEnds(t *testing.T) {
	p := NewPort[int](Infinite())
	p.Send(1)
	p.Close()

	v, ok := p.Receive()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = p.Receive()
	assert.False(t, ok)
}

func TestPortManyWritersOneReader(t *testing.T) {
	p := NewPort[int](Infinite())
	var wg sync.WaitGroup
	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				p.Send(base + i)
			}
		}(w * 100)
	}
	go func() {
		wg.Wait()
		p.Close()
	}()

	count := 0
	for {
		_, ok := p.Receive()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 30, count)
}

func TestFiniteBoundBlocksUntilConsumed(t *testing.T) {
	p := NewPort[int](Finite(1))
	p.Send(1)

	sent := make(chan struct{})
	go func() {
		p.Send(2)
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatal("second Send should have blocked while the buffer is full")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok := p.Receive()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	<-sent
	v, ok = p.Receive()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestFanoutBroadcastsToAllTargets(t *testing.T) {
	a := NewPort[string](Infinite())
	b := NewPort[string](Infinite())
	fo := NewFanout(a, b)

	fo.Send("hello")

	va, ok := a.TryReceive()
	require.NoError(t, ok)
	vb, errB := b.TryReceive()
	require.NoError(t, errB)
	assert.Equal(t, "hello", va)
	assert.Equal(t, "hello", vb)
}
