package usage

import (
	"encoding/json"
	"fmt"

	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// Coverage counts distinct users in records of the given variant.
//
// Conversation and workflow records use a two-tier rule decided once per application:
// if any record names an account, only account names are counted; otherwise end-user
// session ids are. Completion records only carry account names.
func Coverage(variant models.Variant, records []json.RawMessage) (int, error) {
	switch variant {
	case models.VariantConversation:
		accounts := make([]*string, 0, len(records))
		sessions := make([]*string, 0, len(records))
		for i, raw := range records {
			var rec models.ConversationRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return 0, fmt.Errorf("record %d: %w", i, err)
			}
			accounts = append(accounts, rec.AccountName)
			sessions = append(sessions, rec.EndUserSessionID)
		}
		return twoTier(accounts, sessions), nil

	case models.VariantWorkflowLog:
		accounts := make([]*string, 0, len(records))
		sessions := make([]*string, 0, len(records))
		for i, raw := range records {
			var rec models.WorkflowLogRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return 0, fmt.Errorf("record %d: %w", i, err)
			}
			accounts = append(accounts, rec.AccountName())
			sessions = append(sessions, rec.SessionID())
		}
		return twoTier(accounts, sessions), nil

	case models.VariantCompletion:
		accounts := make([]*string, 0, len(records))
		for i, raw := range records {
			var rec models.CompletionRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return 0, fmt.Errorf("record %d: %w", i, err)
			}
			accounts = append(accounts, rec.AccountName)
		}
		return distinct(accounts), nil

	default:
		return 0, fmt.Errorf("unknown usage variant %q", variant)
	}
}

// twoTier counts primary values when any is present, secondary values otherwise.
// The two are never mixed.
func twoTier(primary, secondary []*string) int {
	for _, v := range primary {
		if present(v) {
			return distinct(primary)
		}
	}
	return distinct(secondary)
}

func distinct(values []*string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if present(v) {
			seen[*v] = struct{}{}
		}
	}
	return len(seen)
}

// present treats empty strings like null; the console emits both for anonymous rows.
func present(v *string) bool {
	return v != nil && *v != ""
}
