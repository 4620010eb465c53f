package lsp

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/bkyoung/patch-digest/internal/usecase/navigate"
)

// Definitions resolves textDocument/definition at the given position.
func (c *Client) Definitions(ctx context.Context, path string, line, character int) ([]navigate.Location, error) {
	if err := c.ensureOpen(path); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	params := positionParams{
		TextDocument: textDocumentIdentifier{URI: pathToURI(c.absPath(path))},
		Position:     position{Line: line, Character: character},
	}
	if err := c.call(ctx, "textDocument/definition", params, &raw); err != nil {
		return nil, err
	}
	return c.toLocations(decodeLocations(raw)), nil
}

// References resolves textDocument/references at the given position,
// including the declaration itself.
func (c *Client) References(ctx context.Context, path string, line, character int) ([]navigate.Location, error) {
	if err := c.ensureOpen(path); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	params := referenceParams{
		TextDocument: textDocumentIdentifier{URI: pathToURI(c.absPath(path))},
		Position:     position{Line: line, Character: character},
		Context:      referenceContext{IncludeDeclaration: true},
	}
	if err := c.call(ctx, "textDocument/references", params, &raw); err != nil {
		return nil, err
	}
	return c.toLocations(decodeLocations(raw)), nil
}

// DocumentSymbols lists textDocument/documentSymbol results with the
// hierarchy flattened depth-first and kinds converted to names.
func (c *Client) DocumentSymbols(ctx context.Context, path string) ([]navigate.Symbol, error) {
	if err := c.ensureOpen(path); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	params := documentSymbolParams{
		TextDocument: textDocumentIdentifier{URI: pathToURI(c.absPath(path))},
	}
	if err := c.call(ctx, "textDocument/documentSymbol", params, &raw); err != nil {
		return nil, err
	}
	return decodeSymbols(raw), nil
}

// decodeLocations normalizes the three result shapes servers return for
// definition and reference queries: a single Location, a Location
// array, or a LocationLink array.
func decodeLocations(raw json.RawMessage) []wireLocation {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	if raw[0] == '{' {
		var single wireLocation
		if err := json.Unmarshal(raw, &single); err != nil || single.URI == "" {
			return nil
		}
		return []wireLocation{single}
	}

	var locations []wireLocation
	if err := json.Unmarshal(raw, &locations); err == nil && (len(locations) == 0 || locations[0].URI != "") {
		return locations
	}

	var links []locationLink
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil
	}
	locations = make([]wireLocation, 0, len(links))
	for _, link := range links {
		locations = append(locations, wireLocation{URI: link.TargetURI, Range: link.TargetRange})
	}
	return locations
}

func (c *Client) toLocations(wire []wireLocation) []navigate.Location {
	locations := make([]navigate.Location, 0, len(wire))
	for _, loc := range wire {
		abs := uriToPath(loc.URI)
		rel, err := filepath.Rel(c.cfg.WorkspaceRoot, abs)
		if err != nil {
			rel = abs
		}
		locations = append(locations, navigate.Location{
			URI:          loc.URI,
			Range:        toRange(loc.Range),
			AbsolutePath: abs,
			RelativePath: rel,
		})
	}
	return locations
}

// decodeSymbols accepts both the hierarchical DocumentSymbol shape and
// the flat SymbolInformation shape older servers return.
func decodeSymbols(raw json.RawMessage) []navigate.Symbol {
	if len(raw) == 0 || string(raw) == "null" {
		return []navigate.Symbol{}
	}

	var probe []struct {
		Location *wireLocation `json:"location"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return []navigate.Symbol{}
	}

	if len(probe) > 0 && probe[0].Location != nil {
		var flat []symbolInformation
		if err := json.Unmarshal(raw, &flat); err != nil {
			return []navigate.Symbol{}
		}
		symbols := make([]navigate.Symbol, 0, len(flat))
		for _, info := range flat {
			var r navigate.Range
			if info.Location != nil {
				r = toRange(info.Location.Range)
			}
			symbols = append(symbols, navigate.Symbol{
				Name:           info.Name,
				Kind:           SymbolKindName(info.Kind),
				Range:          r,
				SelectionRange: r,
			})
		}
		return symbols
	}

	var tree []documentSymbol
	if err := json.Unmarshal(raw, &tree); err != nil {
		return []navigate.Symbol{}
	}
	symbols := make([]navigate.Symbol, 0, len(tree))
	return flattenSymbols(symbols, tree)
}

func flattenSymbols(out []navigate.Symbol, tree []documentSymbol) []navigate.Symbol {
	for _, node := range tree {
		out = append(out, navigate.Symbol{
			Name:           node.Name,
			Kind:           SymbolKindName(node.Kind),
			Range:          toRange(node.Range),
			SelectionRange: toRange(node.SelectionRange),
			Detail:         node.Detail,
		})
		out = flattenSymbols(out, node.Children)
	}
	return out
}

func toRange(r wireRange) navigate.Range {
	return navigate.Range{
		Start: navigate.Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   navigate.Position{Line: r.End.Line, Character: r.End.Character},
	}
}
