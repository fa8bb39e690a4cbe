// Package ai provides shared plumbing for the LLM provider clients:
// a retry combinator, defensive response parsing, and cost accounting.
package ai

import "errors"

var (
	ErrEmptyResponse = errors.New("llm returned empty response")
	ErrNotJSON       = errors.New("llm response is not a JSON object or array")
)
