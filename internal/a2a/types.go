// Package a2a implements the agent-to-agent wire protocol: an agent card
// served at a well-known path plus a JSON-RPC message/send endpoint.
package a2a

import "encoding/json"

// AgentCardPath is the well-known discovery path for agent cards.
const AgentCardPath = "/.well-known/agent-card.json"

// AgentCard advertises an agent's identity and capabilities.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	Skills             []AgentSkill      `json:"skills"`
	DefaultInputModes  []string          `json:"defaultInputModes"`
	DefaultOutputModes []string          `json:"defaultOutputModes"`
}

// AgentCapabilities flags optional protocol features.
type AgentCapabilities struct {
	Streaming bool `json:"streaming"`
}

// AgentSkill describes one thing the agent can do.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// Part is one piece of message content. Only text parts are produced here;
// unknown kinds are skipped by readers.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// Message is the unit exchanged over message/send.
type Message struct {
	Role      string `json:"role"`
	MessageID string `json:"messageId"`
	Kind      string `json:"kind,omitempty"`
	Parts     []Part `json:"parts"`
}

// sendParams is the params envelope for the message/send method.
type sendParams struct {
	Message Message `json:"message"`
}

// --- JSON-RPC 2.0 envelope ---

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC error codes used by the server.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)
