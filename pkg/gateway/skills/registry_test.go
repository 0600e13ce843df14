package skills

import (
	"context"
	"strings"
	"testing"
)

type stubSkill struct {
	name   string
	invoke func(ctx context.Context, args map[string]any) map[string]any
}

func (s stubSkill) Name() string { return s.name }

func (s stubSkill) Invoke(ctx context.Context, args map[string]any) map[string]any {
	return s.invoke(ctx, args)
}

func TestRegistry_Invoke(t *testing.T) {
	reg := NewRegistry(stubSkill{
		name: "echo",
		invoke: func(_ context.Context, args map[string]any) map[string]any {
			return map[string]any{"echo": args["text"]}
		},
	})

	out := reg.Invoke(context.Background(), "echo", map[string]any{"text": "hi"})
	if out["echo"] != "hi" {
		t.Fatalf("result=%v", out)
	}
}

func TestRegistry_UnknownFunction(t *testing.T) {
	reg := NewRegistry()
	out := reg.Invoke(context.Background(), "nope", nil)
	errMsg, _ := out["error"].(string)
	if errMsg != "Unknown function: nope" {
		t.Fatalf("error=%q", errMsg)
	}
}

func TestRegistry_PanicBecomesErrorResult(t *testing.T) {
	reg := NewRegistry(stubSkill{
		name: "boom",
		invoke: func(context.Context, map[string]any) map[string]any {
			panic("kaboom")
		},
	})

	out := reg.Invoke(context.Background(), "boom", nil)
	errMsg, _ := out["error"].(string)
	if !strings.HasPrefix(errMsg, "Function call failed with: ") {
		t.Fatalf("error=%q", errMsg)
	}
	if !strings.Contains(errMsg, "kaboom") {
		t.Fatalf("error=%q", errMsg)
	}
}

func TestRegistry_NilResultBecomesEmptyObject(t *testing.T) {
	reg := NewRegistry(stubSkill{
		name:   "void",
		invoke: func(context.Context, map[string]any) map[string]any { return nil },
	})

	out := reg.Invoke(context.Background(), "void", nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("result=%v", out)
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry(
		stubSkill{name: "b", invoke: func(context.Context, map[string]any) map[string]any { return nil }},
		stubSkill{name: "a", invoke: func(context.Context, map[string]any) map[string]any { return nil }},
	)
	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("names=%v", names)
	}
	if !reg.Has("a") || reg.Has("c") {
		t.Fatalf("Has() mismatch")
	}
}
