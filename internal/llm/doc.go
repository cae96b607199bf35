// Package llm provides the language-model matching collaborator. It supports
// OpenAI, Anthropic and Gemini providers behind a common completion client, with
// retry logic, rate limiting, a circuit breaker, and token-based cost estimates.
package llm
