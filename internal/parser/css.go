package parser

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/types"
)

// CSSParser extracts product cards using CSS selectors via goquery.
type CSSParser struct {
	sel    config.SelectorSet
	logger *slog.Logger
}

// NewCSSParser creates a new CSS selector parser.
func NewCSSParser(sel config.SelectorSet, logger *slog.Logger) *CSSParser {
	return &CSSParser{
		sel:    sel,
		logger: logger.With("component", "css_parser"),
	}
}

// Cards implements Parser.
func (p *CSSParser) Cards(resp *types.Response) ([]Card, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Field: "card", Selector: p.sel.Card, Err: err}
	}
	base, err := resp.BaseURL()
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Field: "card", Selector: p.sel.Card, Err: err}
	}

	var cards []Card
	doc.Find(p.sel.Card).Each(func(i int, s *goquery.Selection) {
		cards = append(cards, Card{
			Index:    i,
			Node:     s.Nodes[0],
			PageURL:  base,
			Category: resp.Request.Category,
		})
	})

	p.logger.Debug("cards selected", "url", base.String(), "count", len(cards))
	return cards, nil
}

// Extract implements Parser.
func (p *CSSParser) Extract(card Card) (*types.Product, error) {
	r := &cssReader{card: card, root: goquery.NewDocumentFromNode(card.Node).Selection}
	return extractProduct(card, r, p.sel)
}

// cssReader reads fields from one card with goquery.
type cssReader struct {
	card Card
	root *goquery.Selection
}

func (r *cssReader) find(field, selector string) (*goquery.Selection, error) {
	s := r.root.Find(selector).First()
	if s.Length() == 0 {
		return nil, parseErr(r.card, field, selector, types.ErrMissingElement)
	}
	return s, nil
}

func (r *cssReader) text(field, selector string) (string, error) {
	s, err := r.find(field, selector)
	if err != nil {
		return "", err
	}
	return s.Text(), nil
}

func (r *cssReader) attr(field, selector, name string) (string, error) {
	s, err := r.find(field, selector)
	if err != nil {
		return "", err
	}
	v, ok := s.Attr(name)
	if !ok {
		return "", parseErr(r.card, field, selector+"@"+name, types.ErrMissingElement)
	}
	return v, nil
}
