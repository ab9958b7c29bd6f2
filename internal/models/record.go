package models

import "encoding/json"

// PageEnvelope is one page of usage records normalized across endpoint variants.
type PageEnvelope struct {
	// Total is the authoritative record count; only page 1's value is meaningful.
	Total   int
	Records []json.RawMessage
	HasMore bool
}

// ConversationRecord is a chat-style usage record. At most one of the identifying
// fields is expected to be populated across an application's whole record set.
type ConversationRecord struct {
	AccountName      *string
	EndUserSessionID *string
}

// UnmarshalJSON accepts the console's snake_case names and the camelCase aliases.
func (r *ConversationRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		FromAccountName       *string `json:"from_account_name"`
		AccountNameCamel      *string `json:"accountName"`
		AccountName           *string `json:"account_name"`
		FromEndUserSessionID  *string `json:"from_end_user_session_id"`
		EndUserSessionIDCamel *string `json:"endUserSessionId"`
		EndUserSessionIDSnake *string `json:"end_user_session_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.AccountName = firstNonNil(raw.FromAccountName, raw.AccountNameCamel, raw.AccountName)
	r.EndUserSessionID = firstNonNil(raw.FromEndUserSessionID, raw.EndUserSessionIDCamel, raw.EndUserSessionIDSnake)
	return nil
}

// CompletionRecord is a completion-style usage record; only an account name identifies a user.
type CompletionRecord struct {
	AccountName *string
}

// UnmarshalJSON accepts the console's snake_case names and the camelCase alias.
func (r *CompletionRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		FromAccountName  *string `json:"from_account_name"`
		AccountNameCamel *string `json:"accountName"`
		AccountName      *string `json:"account_name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.AccountName = firstNonNil(raw.FromAccountName, raw.AccountNameCamel, raw.AccountName)
	return nil
}

// WorkflowAccount is the console account that triggered a workflow run.
type WorkflowAccount struct {
	Name *string `json:"name"`
}

// WorkflowEndUser is the end user that triggered a workflow run.
type WorkflowEndUser struct {
	SessionID *string `json:"session_id"`
}

// WorkflowLogRecord is one workflow run log entry.
type WorkflowLogRecord struct {
	Account *WorkflowAccount
	EndUser *WorkflowEndUser
}

// UnmarshalJSON accepts created_by_account/created_by_end_user and the short aliases.
func (r *WorkflowLogRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		CreatedByAccount *WorkflowAccount `json:"created_by_account"`
		Account          *WorkflowAccount `json:"account"`
		CreatedByEndUser *WorkflowEndUser `json:"created_by_end_user"`
		EndUser          *WorkflowEndUser `json:"end_user"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Account = raw.CreatedByAccount
	if r.Account == nil {
		r.Account = raw.Account
	}
	r.EndUser = raw.CreatedByEndUser
	if r.EndUser == nil {
		r.EndUser = raw.EndUser
	}
	return nil
}

// AccountName returns the nested account name, or nil.
func (r WorkflowLogRecord) AccountName() *string {
	if r.Account == nil {
		return nil
	}
	return r.Account.Name
}

// SessionID returns the nested end-user session id, or nil.
func (r WorkflowLogRecord) SessionID() *string {
	if r.EndUser == nil {
		return nil
	}
	return r.EndUser.SessionID
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
