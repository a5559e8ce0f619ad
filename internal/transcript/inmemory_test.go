package transcript

import (
	"context"
	"fmt"
	"testing"
)

func TestInMemoryStoreRecentOrder(t *testing.T) {
	s := NewInMemoryStore(0)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := s.SaveTurn(ctx, TurnRecord{
			RequestID: fmt.Sprintf("req-%d", i),
			UserText:  fmt.Sprintf("question %d", i),
			ReplyText: fmt.Sprintf("answer %d", i),
		})
		if err != nil {
			t.Fatalf("SaveTurn: %v", err)
		}
	}

	got, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, r := range got {
		if want := fmt.Sprintf("req-%d", i+2); r.RequestID != want {
			t.Fatalf("got[%d].RequestID = %q, want %q", i, r.RequestID, want)
		}
		if r.ID == "" || r.CreatedAt.IsZero() {
			t.Fatalf("record missing generated fields: %+v", r)
		}
	}
}

func TestInMemoryStoreRingBound(t *testing.T) {
	s := NewInMemoryStore(2)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_ = s.SaveTurn(ctx, TurnRecord{RequestID: fmt.Sprintf("req-%d", i)})
	}
	got, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].RequestID != "req-2" || got[1].RequestID != "req-3" {
		t.Fatalf("ring = %+v", got)
	}
}
