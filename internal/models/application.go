// Package models defines data structures and domain types.
package models

import "strings"

// Variant identifies which usage-record shape, and which usage endpoint, an application uses.
type Variant string

const (
	// VariantUnknown means the mode was not declared and has not been classified yet.
	VariantUnknown Variant = ""
	// VariantConversation covers chat, agent-chat and advanced-chat applications.
	VariantConversation Variant = "conversation"
	// VariantCompletion covers text-completion applications.
	VariantCompletion Variant = "completion"
	// VariantWorkflowLog covers workflow applications, whose usage lives in run logs.
	VariantWorkflowLog Variant = "workflow-log"
)

// String returns the variant tag, or "unknown" for an undeclared mode.
func (v Variant) String() string {
	if v == VariantUnknown {
		return "unknown"
	}
	return string(v)
}

// IsKnown reports whether v is one of the three concrete shapes.
func (v Variant) IsKnown() bool {
	switch v {
	case VariantConversation, VariantCompletion, VariantWorkflowLog:
		return true
	}
	return false
}

// VariantFromMode maps a console "mode" string to a variant.
func VariantFromMode(mode string) Variant {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "chat", "agent-chat", "advanced-chat", "conversation":
		return VariantConversation
	case "completion":
		return VariantCompletion
	case "workflow", "workflow-log":
		return VariantWorkflowLog
	default:
		return VariantUnknown
	}
}

// Application is one deployed unit in a workspace.
type Application struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// RawMode is the mode string reported by the console, kept for display.
	RawMode string `json:"mode,omitempty"`
	// Mode is the declared variant; VariantUnknown requires classification.
	Mode Variant `json:"-"`
}

// DisplayName returns Name, falling back to the identifier.
func (a Application) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// Workspace is the tenant the credentials are scoped to.
type Workspace struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Plan   string `json:"plan,omitempty"`
	Status string `json:"status,omitempty"`
	Role   string `json:"role,omitempty"`
}
