package repository

import (
	"context"
	"reflect"
	"testing"

	"github.com/set-night/pocketchat/internal/domain"
	"github.com/set-night/pocketchat/internal/kvstore"
)

func TestMessageLogRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageLogRepository(kvstore.NewMemory())

	tests := []struct {
		name     string
		messages []domain.Message
	}{
		{name: "empty", messages: []domain.Message{}},
		{name: "single", messages: []domain.Message{
			{Role: domain.RoleHuman, Content: "hello"},
		}},
		{name: "conversation", messages: []domain.Message{
			{Role: domain.RoleHuman, Content: "hi"},
			{Role: domain.RoleAI, Content: "hello!"},
			{Role: domain.RoleHuman, Content: "how are you?"},
			{Role: domain.RoleAI, Content: "fine"},
		}},
		{name: "content with newlines and unicode", messages: []domain.Message{
			{Role: domain.RoleHuman, Content: "line1\nline2\t\"quoted\" …émoji 🤖"},
			{Role: domain.RoleAI, Content: ""},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := repo.Set(ctx, "s", tc.messages); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, err := repo.Get(ctx, "s")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !reflect.DeepEqual(got, tc.messages) {
				t.Errorf("got %+v, want %+v", got, tc.messages)
			}
		})
	}
}

func TestMessageLogRepository_GetAbsent(t *testing.T) {
	repo := NewMessageLogRepository(kvstore.NewMemory())
	got, err := repo.Get(context.Background(), "never-written")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestMessageLogRepository_SetNil(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageLogRepository(kvstore.NewMemory())

	if err := repo.Set(ctx, "s", nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := repo.Get(ctx, "s")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil log", got)
	}
}

func TestMessageLogRepository_GetLastN(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageLogRepository(kvstore.NewMemory())

	log := make([]domain.Message, 5)
	for i := range log {
		log[i] = domain.Message{Role: domain.RoleHuman, Content: string(rune('a' + i))}
	}
	if err := repo.Set(ctx, "s", log); err != nil {
		t.Fatalf("set: %v", err)
	}

	tests := []struct {
		name string
		n    int
		want []domain.Message
	}{
		{name: "suffix", n: 2, want: log[3:]},
		{name: "exact length", n: 5, want: log},
		{name: "longer than log", n: 10, want: log},
		{name: "zero", n: 0, want: []domain.Message{}},
		{name: "negative", n: -1, want: []domain.Message{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.GetLastN(ctx, "s", tc.n)
			if err != nil {
				t.Fatalf("get last %d: %v", tc.n, err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMessageLogRepository_Replace(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageLogRepository(kvstore.NewMemory())

	if err := repo.Set(ctx, "s", []domain.Message{
		{Role: domain.RoleHuman, Content: "old"},
	}); err != nil {
		t.Fatalf("set: %v", err)
	}
	replacement := []domain.Message{
		{Role: domain.RoleHuman, Content: "new"},
		{Role: domain.RoleAI, Content: "reply"},
	}
	if err := repo.Set(ctx, "s", replacement); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := repo.Get(ctx, "s")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, replacement) {
		t.Errorf("got %v, want %v", got, replacement)
	}
}
