package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWorkflowFieldsSkipsEmptyIdentifiers(t *testing.T) {
	fields := WorkflowFields("wf-1", "", " req-9 ")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Key != FieldWorkflow || fields[0].String != "wf-1" {
		t.Fatalf("unexpected workflow field: %+v", fields[0])
	}

	if fields[1].Key != FieldRequirement || fields[1].String != "req-9" {
		t.Fatalf("unexpected requirement field: %+v", fields[1])
	}
}

func TestWithWorkflowFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enriched := WithWorkflowFields(logger, "wf-1", "cand-1", "req-1")
	enriched.Info("stage done", StageField("ANALYZED"))

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	for key, want := range map[string]string{
		FieldWorkflow:    "wf-1",
		FieldCandidate:   "cand-1",
		FieldRequirement: "req-1",
		FieldStage:       "ANALYZED",
	} {
		if ctx[key] != want {
			t.Fatalf("expected %s to be %q, got %v", key, want, ctx[key])
		}
	}

	if WithWorkflowFields(nil, "", "", "") == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
}

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  Gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	empty := StringFields()
	if len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enriched := WithFields(logger, zap.String("foo", "bar"))
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	enriched = WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	// Ensure logging with the fallback logger does not panic.
	enriched.Info("another log")
}
