package memory

import (
	"fmt"
	"sync"
	"testing"
)

func TestPaidSessionsRecordIsIdempotent(t *testing.T) {
	reg := NewPaidSessions()
	if reg.IsPaid("cs_1") {
		t.Fatalf("expected unknown session to be unpaid")
	}

	reg.RecordPaid("cs_1")
	reg.RecordPaid("cs_1")
	if !reg.IsPaid("cs_1") {
		t.Fatalf("expected recorded session to be paid")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one entry, got %d", reg.Len())
	}

	reg.RecordPaid("")
	if reg.IsPaid("") || reg.Len() != 1 {
		t.Fatalf("empty session id must not be recorded")
	}
}

func TestPaidSessionsConcurrentAccess(t *testing.T) {
	reg := NewPaidSessions()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := fmt.Sprintf("cs_%d", i%10)
		go func() {
			defer wg.Done()
			reg.RecordPaid(id)
		}()
		go func() {
			defer wg.Done()
			_ = reg.IsPaid(id)
		}()
	}
	wg.Wait()

	if reg.Len() != 10 {
		t.Fatalf("expected 10 distinct sessions, got %d", reg.Len())
	}
}
