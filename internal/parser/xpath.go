package parser

import (
	"fmt"
	"log/slog"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/types"
)

// XPathParser extracts product cards using XPath expressions.
type XPathParser struct {
	sel    config.SelectorSet
	logger *slog.Logger
}

// NewXPathParser creates a new XPath parser.
func NewXPathParser(sel config.SelectorSet, logger *slog.Logger) *XPathParser {
	return &XPathParser{
		sel:    sel,
		logger: logger.With("component", "xpath_parser"),
	}
}

// Cards implements Parser.
func (p *XPathParser) Cards(resp *types.Response) ([]Card, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Field: "card", Selector: p.sel.Card, Err: err}
	}
	base, err := resp.BaseURL()
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Field: "card", Selector: p.sel.Card, Err: err}
	}

	nodes, err := htmlquery.QueryAll(doc.Nodes[0], p.sel.Card)
	if err != nil {
		return nil, &types.ParseError{URL: base.String(), Field: "card", Selector: p.sel.Card, Err: err}
	}

	cards := make([]Card, len(nodes))
	for i, n := range nodes {
		cards[i] = Card{
			Index:    i,
			Node:     n,
			PageURL:  base,
			Category: resp.Request.Category,
		}
	}

	p.logger.Debug("cards selected", "url", base.String(), "count", len(cards))
	return cards, nil
}

// Extract implements Parser.
func (p *XPathParser) Extract(card Card) (*types.Product, error) {
	return extractProduct(card, &xpathReader{card: card}, p.sel)
}

// xpathReader reads fields from one card with htmlquery.
type xpathReader struct {
	card Card
}

func (r *xpathReader) find(field, expr string) (*html.Node, error) {
	n, err := htmlquery.Query(r.card.Node, expr)
	if err != nil {
		return nil, parseErr(r.card, field, expr, fmt.Errorf("bad expression: %w", err))
	}
	if n == nil {
		return nil, parseErr(r.card, field, expr, types.ErrMissingElement)
	}
	return n, nil
}

func (r *xpathReader) text(field, expr string) (string, error) {
	n, err := r.find(field, expr)
	if err != nil {
		return "", err
	}
	return htmlquery.InnerText(n), nil
}

func (r *xpathReader) attr(field, expr, name string) (string, error) {
	n, err := r.find(field, expr)
	if err != nil {
		return "", err
	}
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, nil
		}
	}
	return "", parseErr(r.card, field, expr+"/@"+name, types.ErrMissingElement)
}
