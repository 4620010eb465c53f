package lsp

import "encoding/json"

const jsonRPCVersion = "2.0"

// request is a JSON-RPC request or, when ID is zero and omitted, a
// notification.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id,omitempty"`
	Method  string      `json:"method,omitempty"`
	Params  interface{} `json:"params,omitempty"`
}

// message is an incoming JSON-RPC message: a response to one of our
// requests, a server notification, or a server-initiated request.
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

// responseError carries a JSON-RPC error object.
type responseError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// reply answers a server-initiated request.
type reply struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Result  interface{} `json:"result"`
}

// position, wireRange and wireLocation mirror the LSP wire shapes.
// Line and character are 0-indexed per the LSP specification.
type position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type wireRange struct {
	Start position `json:"start"`
	End   position `json:"end"`
}

type wireLocation struct {
	URI   string    `json:"uri"`
	Range wireRange `json:"range"`
}

// locationLink is the alternate definition result shape some servers
// return instead of plain locations.
type locationLink struct {
	TargetURI   string    `json:"targetUri"`
	TargetRange wireRange `json:"targetRange"`
}

// documentSymbol is the hierarchical textDocument/documentSymbol shape.
type documentSymbol struct {
	Name           string           `json:"name"`
	Detail         string           `json:"detail,omitempty"`
	Kind           int              `json:"kind"`
	Range          wireRange        `json:"range"`
	SelectionRange wireRange        `json:"selectionRange"`
	Children       []documentSymbol `json:"children,omitempty"`
}

// symbolInformation is the flat documentSymbol result shape older
// servers return when hierarchical symbols are unsupported.
type symbolInformation struct {
	Name     string        `json:"name"`
	Kind     int           `json:"kind"`
	Location *wireLocation `json:"location"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type textDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type positionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     position               `json:"position"`
}

type referenceParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     position               `json:"position"`
	Context      referenceContext       `json:"context"`
}

type referenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

type documentSymbolParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type initializeParams struct {
	ProcessID    int                    `json:"processId"`
	RootURI      string                 `json:"rootUri"`
	Capabilities map[string]interface{} `json:"capabilities"`
}

// symbolKindNames maps LSP SymbolKind integers to their names, per the
// specification's 1-based enumeration.
var symbolKindNames = [...]string{
	1:  "File",
	2:  "Module",
	3:  "Namespace",
	4:  "Package",
	5:  "Class",
	6:  "Method",
	7:  "Property",
	8:  "Field",
	9:  "Constructor",
	10: "Enum",
	11: "Interface",
	12: "Function",
	13: "Variable",
	14: "Constant",
	15: "String",
	16: "Number",
	17: "Boolean",
	18: "Array",
	19: "Object",
	20: "Key",
	21: "Null",
	22: "EnumMember",
	23: "Struct",
	24: "Event",
	25: "Operator",
	26: "TypeParameter",
}

// SymbolKindName returns the name for an LSP symbol kind integer, or
// "Unknown" when the value is out of range.
func SymbolKindName(kind int) string {
	if kind < 1 || kind >= len(symbolKindNames) {
		return "Unknown"
	}
	return symbolKindNames[kind]
}
