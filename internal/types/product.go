package types

import (
	"strconv"
	"strings"
	"time"
)

// VariantKey is the additional-info key under which capacity prices are stored.
const VariantKey = "hdd_prices"

// CSVHeader is the fixed column list written at the top of every category file.
var CSVHeader = []string{"title", "description", "price", "rating", "num_of_reviews", "additional_info"}

// Variant is one capacity option and the price shown when it is selected.
type Variant struct {
	Label string
	Price float64
}

// VariantPrices is an insertion-ordered label -> price mapping.
type VariantPrices struct {
	entries []Variant
}

// Set records a price, replacing an existing label in place.
func (v *VariantPrices) Set(label string, price float64) {
	for i := range v.entries {
		if v.entries[i].Label == label {
			v.entries[i].Price = price
			return
		}
	}
	v.entries = append(v.entries, Variant{Label: label, Price: price})
}

// Get returns the price stored under label.
func (v *VariantPrices) Get(label string) (float64, bool) {
	if v == nil {
		return 0, false
	}
	for _, e := range v.entries {
		if e.Label == label {
			return e.Price, true
		}
	}
	return 0, false
}

// Len returns the number of labels.
func (v *VariantPrices) Len() int {
	if v == nil {
		return 0
	}
	return len(v.entries)
}

// Labels returns the labels in insertion order.
func (v *VariantPrices) Labels() []string {
	if v == nil {
		return nil
	}
	labels := make([]string, len(v.entries))
	for i, e := range v.entries {
		labels[i] = e.Label
	}
	return labels
}

// Entries returns a copy of the ordered entries.
func (v *VariantPrices) Entries() []Variant {
	if v == nil {
		return nil
	}
	return append([]Variant(nil), v.entries...)
}

// Map returns the prices as a plain map.
func (v *VariantPrices) Map() map[string]float64 {
	m := make(map[string]float64, v.Len())
	if v == nil {
		return m
	}
	for _, e := range v.entries {
		m[e.Label] = e.Price
	}
	return m
}

// Product is a single scraped listing entry.
type Product struct {
	Title        string
	Description  string
	Price        float64
	Rating       int
	NumOfReviews int

	// HDDPrices holds the capacity table read from the detail page.
	HDDPrices *VariantPrices

	// DetailURL is the absolute product page URL.
	DetailURL string

	// Category is the listing category the product was found in.
	Category string

	// ScrapedAt is when the card was extracted.
	ScrapedAt time.Time
}

// NewProduct creates an empty Product for a category.
func NewProduct(category string) *Product {
	return &Product{
		HDDPrices: &VariantPrices{},
		Category:  category,
		ScrapedAt: time.Now(),
	}
}

// AdditionalInfo renders the variant table as a Python-literal dict,
// e.g. {'hdd_prices': {'250GB': 250.0}}.
func (p *Product) AdditionalInfo() string {
	var sb strings.Builder
	sb.WriteString("{")
	sb.WriteString(PyString(VariantKey))
	sb.WriteString(": {")
	for i, e := range p.HDDPrices.Entries() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(PyString(e.Label))
		sb.WriteString(": ")
		sb.WriteString(PyFloat(e.Price))
	}
	sb.WriteString("}}")
	return sb.String()
}

// Row returns the CSV record for the product, in CSVHeader order.
func (p *Product) Row() []string {
	return []string{
		p.Title,
		p.Description,
		PyFloat(p.Price),
		strconv.Itoa(p.Rating),
		strconv.Itoa(p.NumOfReviews),
		p.AdditionalInfo(),
	}
}
