// Package mcp exposes a loaded index to AI clients as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

// MCP error codes returned to clients.
const (
	// ErrCodeIndexNotFound indicates the index is missing or unusable.
	ErrCodeIndexNotFound = -32001

	// ErrCodeBackendUnavailable indicates the embedder or tokenizer failed.
	ErrCodeBackendUnavailable = -32002

	// ErrCodeTimeout indicates the request timed out or was cancelled.
	ErrCodeTimeout = -32003

	// ErrCodeUnknownDocument indicates a doc_id or chunk_id that is not indexed.
	ErrCodeUnknownDocument = -32004

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is a protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if stderrors.As(err, &mcpErr) {
		return mcpErr
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case stderrors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	}

	e, ok := errors.As(err)
	if !ok {
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}

	message := e.Message
	if e.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", e.Message, e.Suggestion)
	}

	switch e.Code {
	case errors.ErrCodeIndexNotFound, errors.ErrCodeCorruptIndex,
		errors.ErrCodeIndexMisaligned, errors.ErrCodeEmptyCorpus:
		return &MCPError{Code: ErrCodeIndexNotFound, Message: message}
	case errors.ErrCodeUnknownDoc:
		return &MCPError{Code: ErrCodeUnknownDocument, Message: message}
	case errors.ErrCodeBackendUnavailable, errors.ErrCodeEmbeddingFailed:
		return &MCPError{Code: ErrCodeBackendUnavailable, Message: message}
	}

	if e.Category == errors.CategoryValidation {
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	}
	return &MCPError{Code: ErrCodeInternalError, Message: message}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}
