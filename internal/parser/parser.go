package parser

import (
	"log/slog"
	"net/url"

	"golang.org/x/net/html"

	"github.com/IshaanNene/PriceStalk/internal/config"
	"github.com/IshaanNene/PriceStalk/internal/types"
)

// Attribute names read from product cards.
const (
	titleAttr  = "title"
	linkAttr   = "href"
	ratingAttr = "data-rating"
)

// Card is one product fragment of a listing page.
type Card struct {
	// Index is the card's position on the page.
	Index int

	// Node is the card's root element.
	Node *html.Node

	// PageURL is the listing page URL; relative links resolve against it.
	PageURL *url.URL

	// Category is the listing category the page belongs to.
	Category string
}

// Parser turns a listing page into product records.
type Parser interface {
	// Cards selects every product card on the page.
	Cards(resp *types.Response) ([]Card, error)

	// Extract reads all product fields from one card. Any missing element or
	// malformed number fails the whole card with a *types.ParseError.
	Extract(card Card) (*types.Product, error)
}

// New returns the parser for the configured selector engine.
func New(cfg *config.ParserConfig, logger *slog.Logger) Parser {
	if cfg.Engine == "xpath" {
		return NewXPathParser(cfg.XPath, logger)
	}
	return NewCSSParser(cfg.CSS, logger)
}

// fieldReader reads raw strings out of a single card.
type fieldReader interface {
	text(field, selector string) (string, error)
	attr(field, selector, name string) (string, error)
}

// extractProduct builds a Product from raw card fields.
func extractProduct(card Card, r fieldReader, sel config.SelectorSet) (*types.Product, error) {
	p := types.NewProduct(card.Category)

	var err error
	if p.Title, err = r.attr("title", sel.Title, titleAttr); err != nil {
		return nil, err
	}
	if p.Description, err = r.text("description", sel.Description); err != nil {
		return nil, err
	}

	priceText, err := r.text("price", sel.Price)
	if err != nil {
		return nil, err
	}
	if p.Price, err = ParsePrice(priceText); err != nil {
		return nil, parseErr(card, "price", sel.Price, err)
	}

	ratingText, err := r.attr("rating", sel.Rating, ratingAttr)
	if err != nil {
		return nil, err
	}
	if p.Rating, err = ParseInt(ratingText); err != nil {
		return nil, parseErr(card, "rating", sel.Rating, err)
	}

	reviewsText, err := r.text("num_of_reviews", sel.ReviewCount)
	if err != nil {
		return nil, err
	}
	if p.NumOfReviews, err = ParseLeadingInt(reviewsText); err != nil {
		return nil, parseErr(card, "num_of_reviews", sel.ReviewCount, err)
	}

	href, err := r.attr("detail_url", sel.Title, linkAttr)
	if err != nil {
		return nil, err
	}
	if p.DetailURL, err = ResolveURL(card.PageURL, href); err != nil {
		return nil, parseErr(card, "detail_url", sel.Title, err)
	}

	return p, nil
}

func parseErr(card Card, field, selector string, err error) *types.ParseError {
	pageURL := ""
	if card.PageURL != nil {
		pageURL = card.PageURL.String()
	}
	return &types.ParseError{URL: pageURL, Field: field, Selector: selector, Err: err}
}
