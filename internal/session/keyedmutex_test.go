package session

import (
	"sync"
	"testing"
)

func TestKeyedMutex_EntriesDrain(t *testing.T) {
	var km KeyedMutex

	unlock := km.Lock("cust-1")
	if km.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", km.Len())
	}
	unlock()
	if km.Len() != 0 {
		t.Fatalf("expected the entry to be removed after release, got %d", km.Len())
	}
}

func TestKeyedMutex_TryLockContention(t *testing.T) {
	var km KeyedMutex

	unlock := km.Lock("cust-1")

	if _, ok := km.TryLock("cust-1"); ok {
		t.Fatal("TryLock must fail while the key is held")
	}
	if got, ok := km.TryLock("cust-2"); !ok {
		t.Fatal("a different key must not be blocked")
	} else {
		got()
	}

	unlock()
	second, ok := km.TryLock("cust-1")
	if !ok {
		t.Fatal("TryLock must succeed after release")
	}
	second()

	if km.Len() != 0 {
		t.Fatalf("expected no live entries, got %d", km.Len())
	}
}

func TestKeyedMutex_ConcurrentHoldersShareOneEntry(t *testing.T) {
	var km KeyedMutex
	var wg sync.WaitGroup

	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("cust-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("expected 50 serialized increments, got %d", counter)
	}
	if km.Len() != 0 {
		t.Errorf("expected all entries released, got %d", km.Len())
	}
}
