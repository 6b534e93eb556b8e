package lsp

import (
	"fmt"
	"sort"
	"strings"

	"monkey/internal/compiler"
	"monkey/internal/object"
	"monkey/internal/token"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// HoverAt describes the identifier under pos when it resolves to a
// top-level binding or a builtin. Locals and free variables get no hover.
func HoverAt(doc *Document, pos protocol.Position) *protocol.Hover {
	tok, ok := IdentAt(doc.Text, pos)
	if !ok {
		return nil
	}
	an := doc.Analysis
	if an == nil || an.Symbols == nil {
		return nil
	}
	sym, ok := an.Symbols.Resolve(tok.Literal)
	if !ok {
		return nil
	}

	var body string
	switch sym.Scope {
	case compiler.GlobalScope:
		sig := "let " + sym.Name
		if b, ok := an.Binding(sym.Name); ok && b.Function {
			sig += " = fn(" + strings.Join(b.Params, ", ") + ")"
		}
		body = fmt.Sprintf("```monkey\n%s\n```\nglobal #%d", sig, sym.Index)
	case compiler.BuiltinScope:
		body = fmt.Sprintf("```monkey\n%s\n```\nbuiltin #%d", builtinSignature(sym.Name), sym.Index)
	default:
		return nil
	}

	rng := rangeOfToken(doc.Text, tok.Line, tok.Col, tok.Literal)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: body},
		Range:    &rng,
	}
}

func builtinSignature(name string) string {
	switch name {
	case "len":
		return "len(value)"
	}
	return name + "(...)"
}

// DefinitionAt finds the top-level let that binds the identifier under
// pos.
func DefinitionAt(uri string, doc *Document, pos protocol.Position) *protocol.Location {
	tok, ok := IdentAt(doc.Text, pos)
	if !ok || doc.Analysis == nil {
		return nil
	}
	b, ok := doc.Analysis.Binding(tok.Literal)
	if !ok {
		return nil
	}
	return &protocol.Location{
		URI:   protocol.DocumentUri(uri),
		Range: rangeOfToken(doc.Text, b.Token.Line, b.Token.Col, b.Token.Literal),
	}
}

// CompletionItems offers top-level bindings, then builtins, then keywords.
func CompletionItems(doc *Document) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := map[string]bool{}

	if doc.Analysis != nil {
		for i := len(doc.Analysis.Bindings) - 1; i >= 0; i-- {
			b := doc.Analysis.Bindings[i]
			if seen[b.Name] {
				continue
			}
			seen[b.Name] = true
			kind := protocol.CompletionItemKindVariable
			detail := "let " + b.Name
			if b.Function {
				kind = protocol.CompletionItemKindFunction
				detail = "fn(" + strings.Join(b.Params, ", ") + ")"
			}
			items = append(items, completionItem(b.Name, kind, detail, "0"))
		}
	}

	for _, def := range object.Builtins {
		if seen[def.Name] {
			continue
		}
		items = append(items, completionItem(def.Name, protocol.CompletionItemKindFunction, builtinSignature(def.Name), "1"))
	}

	keywords := token.Keywords()
	sort.Strings(keywords)
	for _, kw := range keywords {
		items = append(items, completionItem(kw, protocol.CompletionItemKindKeyword, "keyword", "2"))
	}
	return items
}

func completionItem(label string, kind protocol.CompletionItemKind, detail, weight string) protocol.CompletionItem {
	sortText := weight + label
	return protocol.CompletionItem{
		Label:    label,
		Kind:     &kind,
		Detail:   &detail,
		SortText: &sortText,
	}
}

// DocumentSymbols lists the top-level lets in source order.
func DocumentSymbols(doc *Document) []protocol.DocumentSymbol {
	if doc.Analysis == nil {
		return nil
	}
	out := make([]protocol.DocumentSymbol, 0, len(doc.Analysis.Bindings))
	for _, b := range doc.Analysis.Bindings {
		kind := protocol.SymbolKindVariable
		if b.Function {
			kind = protocol.SymbolKindFunction
		}
		rng := rangeOfToken(doc.Text, b.Token.Line, b.Token.Col, b.Token.Literal)
		out = append(out, protocol.DocumentSymbol{
			Name:           b.Name,
			Kind:           kind,
			Range:          rng,
			SelectionRange: rng,
		})
	}
	return out
}
