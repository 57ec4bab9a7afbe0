package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devman-ai/devman/internal/storage"
	"github.com/devman-ai/devman/internal/work"
	"github.com/devman-ai/devman/pkg/models"
)

// errorBody is the business-error envelope returned inside an IsError
// tool result.
type errorBody struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func businessError(code int, message string, retryable bool, data json.RawMessage) *gomcp.CallToolResult {
	env := errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Data:      data,
	}}
	text, err := json.Marshal(env)
	if err != nil {
		text = []byte(fmt.Sprintf(`{"success":false,"error":{"code":%d,"message":%q,"retryable":false}}`, models.CodeBusinessError, message))
	}
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: string(text)}},
		IsError: true,
	}
}

func invalidParams(message string) *gomcp.CallToolResult {
	return businessError(models.CodeBusinessError, message, false, nil)
}

// errorResult maps an engine error to the business-error envelope. State
// conflicts carry the required action and guidance as data; job errors
// keep their own code and retryability.
func errorResult(err error) *gomcp.CallToolResult {
	var conflict *work.StateConflictError
	if errors.As(err, &conflict) {
		data, _ := json.Marshal(map[string]string{
			"required_action": conflict.RequiredAction,
			"guidance":        conflict.Guidance,
		})
		return businessError(models.CodeStateConflict, conflict.Error(), false, data)
	}

	var jobErr *models.JobError
	if errors.As(err, &jobErr) {
		return businessError(jobErr.Code, jobErr.Message, jobErr.Retryable, jobErr.Data)
	}

	if errors.Is(err, storage.ErrNotFound) {
		return businessError(models.CodeResourceNotFound, err.Error(), false, nil)
	}

	return businessError(models.CodeBusinessError, err.Error(), false, nil)
}
