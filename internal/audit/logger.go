// Package audit emits a structured audit trail of authentication events,
// separate from the diagnostic log stream.
package audit

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Actions recorded in the audit stream.
const (
	ActionRegister     = "auth.register"
	ActionLogin        = "auth.login"
	ActionLogout       = "auth.logout"
	ActionRefresh      = "auth.token_refresh"
	ActionSessionLogin = "auth.session_login"
)

var auditLogger = zerolog.New(os.Stdout).With().
	Timestamp().
	Str("stream", "audit").
	Logger()

// Record writes one audit entry. Subject identifies the acting account
// (usually its email), detail carries action-specific context such as the
// reconciliation branch, and err is recorded when the action failed.
func Record(action, subject, detail string, success bool, err error) {
	event := auditLogger.Info()
	if !success {
		event = auditLogger.Warn()
	}
	event = event.
		Time("at", time.Now().UTC()).
		Str("action", action).
		Bool("success", success)
	if subject != "" {
		event = event.Str("subject", subject)
	}
	if detail != "" {
		event = event.Str("detail", detail)
	}
	if err != nil {
		event = event.Err(err)
	}
	event.Send()
}
