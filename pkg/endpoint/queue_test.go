// ABOUTME: Tests for the bounded packet queue
// ABOUTME: Checks wait signaling and drop-oldest overflow
package endpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushPop(t *testing.T) {
	q := newPacketQueue(4)

	q.push([]byte{1, 2, 3, 4}, 2, 0)
	q.push([]byte{5, 6}, 1, FlagSilent)

	ok, err := q.Wait(time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	p, ok, err := q.NextPacket()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, p.Data)
	assert.Equal(t, 2, p.Frames)
	assert.False(t, p.Silent())
	q.Release(p)

	p, ok, _ = q.NextPacket()
	require.True(t, ok)
	assert.True(t, p.Silent())
	q.Release(p)

	_, ok, _ = q.NextPacket()
	assert.False(t, ok)
}

func TestQueuePushCopiesData(t *testing.T) {
	q := newPacketQueue(4)

	data := []byte{1, 2}
	q.push(data, 1, 0)
	data[0] = 9

	p, ok, _ := q.NextPacket()
	require.True(t, ok)
	assert.Equal(t, byte(1), p.Data[0])
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	q := newPacketQueue(2)

	q.push([]byte{1}, 1, 0)
	q.push([]byte{2}, 1, 0)
	q.push([]byte{3}, 1, 0)

	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, 2, q.len())

	p, _, _ := q.NextPacket()
	assert.Equal(t, []byte{2}, p.Data)
	assert.Zero(t, p.Flags&FlagDiscontinuity)

	p, _, _ = q.NextPacket()
	assert.Equal(t, []byte{3}, p.Data)
	assert.NotZero(t, p.Flags&FlagDiscontinuity, "packet after a drop marks the gap")
}

func TestQueueWaitTimeout(t *testing.T) {
	q := newPacketQueue(2)

	start := time.Now()
	ok, err := q.Wait(20 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueueWakeReleasesWait(t *testing.T) {
	q := newPacketQueue(2)

	done := make(chan bool)
	go func() {
		ok, _ := q.Wait(10 * time.Second)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Wake()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Wake")
	}
}

func TestQueueSignalAutoResets(t *testing.T) {
	q := newPacketQueue(2)

	q.Wake()
	q.Wake() // coalesced

	ok, _ := q.Wait(time.Second)
	assert.True(t, ok)
	ok, _ = q.Wait(10 * time.Millisecond)
	assert.False(t, ok)
}

func TestQueueFlush(t *testing.T) {
	q := newPacketQueue(4)
	q.push([]byte{1}, 1, 0)
	q.push([]byte{2}, 1, 0)

	q.flush()

	_, ok, _ := q.NextPacket()
	assert.False(t, ok)
}
