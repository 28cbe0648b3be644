package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/PriceStalk/internal/types"
)

// rodPage adapts a go-rod page to Page.
type rodPage struct {
	page       *rod.Page
	navTimeout time.Duration
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.navTimeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

func (p *rodPage) Buttons(ctx context.Context, groupSelector, buttonSelector string) ([]Button, error) {
	has, group, err := p.page.Context(ctx).Has(groupSelector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%w: %q", types.ErrNoVariantGroup, groupSelector)
	}

	els, err := group.Elements(buttonSelector)
	if err != nil {
		return nil, err
	}

	buttons := make([]Button, len(els))
	for i, el := range els {
		buttons[i] = &rodButton{el: el}
	}
	return buttons, nil
}

func (p *rodPage) Text(ctx context.Context, selector string) (string, bool, error) {
	has, el, err := p.page.Context(ctx).Has(selector)
	if err != nil || !has {
		return "", false, err
	}
	text, err := el.Text()
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// rodButton adapts a go-rod element to Button.
type rodButton struct {
	el *rod.Element
}

func (b *rodButton) Disabled() (bool, error) {
	prop, err := b.el.Property("disabled")
	if err != nil {
		return false, err
	}
	return prop.Bool(), nil
}

func (b *rodButton) Value() (string, error) {
	prop, err := b.el.Property("value")
	if err != nil {
		return "", err
	}
	return prop.Str(), nil
}

func (b *rodButton) Click(ctx context.Context) error {
	return b.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (b *rodButton) HasClass(name string) (bool, error) {
	class, err := b.el.Attribute("class")
	if err != nil || class == nil {
		return false, err
	}
	for _, c := range strings.Fields(*class) {
		if c == name {
			return true, nil
		}
	}
	return false, nil
}
