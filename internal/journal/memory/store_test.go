package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
)

func TestMemoryStore_RecordAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	entry := &domain.JournalEntry{
		ID:        "anl_1",
		SessionID: "sess-1",
		Query:     "Is this reportable?",
		Status:    domain.JournalSucceeded,
		Result:    &domain.AnalysisResult{FinalReport: "ok", AgentHistory: []string{"a"}},
		CreatedAt: time.Now(),
	}
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := store.Get(ctx, "anl_1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Query != entry.Query || got.Result.FinalReport != "ok" {
		t.Errorf("Get() = %+v", got)
	}

	got.Result.AgentHistory[0] = "mutated"
	again, _ := store.Get(ctx, "anl_1")
	if again.Result.AgentHistory[0] != "a" {
		t.Error("Get() exposed internal state")
	}
}

func TestMemoryStore_RecordErrors(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Record(ctx, &domain.JournalEntry{}); err == nil {
		t.Error("Record() without id should fail")
	}
	if err := store.Record(ctx, &domain.JournalEntry{ID: "x"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Record(ctx, &domain.JournalEntry{ID: "x"}); err == nil {
		t.Error("Record() with duplicate id should fail")
	}
	if _, err := store.Get(ctx, "missing"); err == nil {
		t.Error("Get() of missing entry should fail")
	}
}

func TestMemoryStore_List(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		session := "sess-a"
		if i%2 == 1 {
			session = "sess-b"
		}
		if err := store.Record(ctx, &domain.JournalEntry{
			ID:        fmt.Sprintf("anl_%d", i),
			SessionID: session,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	tests := []struct {
		name string
		opts ports.ListOptions
		want []string
	}{
		{"all newest first", ports.ListOptions{}, []string{"anl_4", "anl_3", "anl_2", "anl_1", "anl_0"}},
		{"by session", ports.ListOptions{SessionID: "sess-a"}, []string{"anl_4", "anl_2", "anl_0"}},
		{"limit", ports.ListOptions{Limit: 2}, []string{"anl_4", "anl_3"}},
		{"offset", ports.ListOptions{SessionID: "sess-b", Offset: 1}, []string{"anl_1"}},
		{"offset past end", ports.ListOptions{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.opts)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d entries, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.ID != tt.want[i] {
					t.Errorf("List()[%d] = %s, want %s", i, e.ID, tt.want[i])
				}
			}
		})
	}
}

func TestMemoryStore_ListTiesKeepInsertionOrder(t *testing.T) {
	store := New()
	ctx := context.Background()
	now := time.Now()

	for _, id := range []string{"first", "second"} {
		_ = store.Record(ctx, &domain.JournalEntry{ID: id, CreatedAt: now})
	}

	got, _ := store.List(ctx, ports.ListOptions{})
	if len(got) != 2 || got[0].ID != "second" {
		t.Errorf("List() = %v, want newest insertion first", got)
	}
}
