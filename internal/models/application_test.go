package models

import (
	"testing"
	"time"
)

func TestVariantFromMode(t *testing.T) {
	tests := []struct {
		mode string
		want Variant
	}{
		{"chat", VariantConversation},
		{"agent-chat", VariantConversation},
		{"advanced-chat", VariantConversation},
		{"Completion", VariantCompletion},
		{"workflow", VariantWorkflowLog},
		{"", VariantUnknown},
		{"channel", VariantUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			if got := VariantFromMode(tt.mode); got != tt.want {
				t.Errorf("VariantFromMode(%q) = %q, want %q", tt.mode, got, tt.want)
			}
		})
	}
}

func TestVariant_String(t *testing.T) {
	if VariantUnknown.String() != "unknown" {
		t.Errorf("VariantUnknown.String() = %q", VariantUnknown.String())
	}
	if VariantWorkflowLog.String() != "workflow-log" {
		t.Errorf("VariantWorkflowLog.String() = %q", VariantWorkflowLog.String())
	}
	if VariantUnknown.IsKnown() {
		t.Error("VariantUnknown should not be known")
	}
	if !VariantCompletion.IsKnown() {
		t.Error("VariantCompletion should be known")
	}
}

func TestApplication_DisplayName(t *testing.T) {
	if got := (Application{ID: "abc"}).DisplayName(); got != "abc" {
		t.Errorf("DisplayName() = %q, want abc", got)
	}
	if got := (Application{ID: "abc", Name: "Bot"}).DisplayName(); got != "Bot" {
		t.Errorf("DisplayName() = %q, want Bot", got)
	}
}

func TestRunSummary_Duration(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := RunSummary{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	if s.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", s.Duration())
	}

	s.FinishedAt = start.Add(-time.Second)
	if s.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0 for inverted times", s.Duration())
	}
}
