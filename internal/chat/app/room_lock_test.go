package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomLocks_SerializesSameRoom(t *testing.T) {
	locks := newRoomLocks()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("alice_bob")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, locks.size())
}

func TestRoomLocks_IndependentRooms(t *testing.T) {
	locks := newRoomLocks()
	unlockA := locks.Lock("a_b")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("c_d")
		unlock()
		close(done)
	}()
	<-done
	assert.Equal(t, 1, locks.size())
	unlockA()
	assert.Equal(t, 0, locks.size())
}
