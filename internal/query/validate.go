package query

import (
	"strings"

	"github.com/talk2data/talk2data/internal/intent"
	"github.com/talk2data/talk2data/internal/nl2sql"
)

// Validate decides whether a generated statement may reach the engine. Only
// the completion sentinel and a SELECT or JOIN intent without a SELECT
// keyword are rejected; anything else is left for the database to judge.
func Validate(statement string, op intent.Operation) *StageError {
	trimmed := strings.TrimSpace(statement)
	if trimmed == nl2sql.Sentinel {
		return &StageError{Kind: KindCompletionFailure, Message: MessageCompletionFailure}
	}
	if (op == intent.OperationSelect || op == intent.OperationJoin) && !strings.Contains(strings.ToUpper(trimmed), "SELECT") {
		return &StageError{Kind: KindShapeMismatch, Message: MessageShapeMismatch}
	}
	return nil
}
