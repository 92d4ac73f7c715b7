package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/transport"
)

func (f *Flows) showCatalog(ctx context.Context, identity int64) error {
	products, err := f.catalog.ListActiveProducts(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return f.render.ShowText(ctx, identity, "The catalog is empty.", []transport.Option{
			{Label: "Back", Action: actHome},
		})
	}

	options := make([]transport.Option, 0, len(products)+1)
	for _, p := range products {
		options = append(options, transport.Option{
			Label:  fmt.Sprintf("%s — %s", p.Title, domain.FormatMoney(p.Price, p.Currency)),
			Action: prefixProduct + strconv.FormatInt(p.ID, 10),
		})
	}
	options = append(options, transport.Option{Label: "Back", Action: actHome})

	return f.render.ShowText(ctx, identity, "Catalog:", options)
}

func (f *Flows) showProduct(ctx context.Context, identity int64, rawID string) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return domain.Validation("unknown product")
	}
	p, err := f.catalog.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	description := p.Description
	if description == "" {
		description = "No description"
	}
	text := fmt.Sprintf("%s\n\n%s\n\nPrice: %s", p.Title, description, domain.FormatMoney(p.Price, p.Currency))
	options := []transport.Option{
		{Label: "Add to cart", Action: prefixAdd + rawID},
		{Label: "Cart", Action: actCart},
		{Label: "Back", Action: actCatalog},
	}

	if p.PhotoURL != nil {
		return f.render.ShowPhoto(ctx, identity, *p.PhotoURL, text, options)
	}
	return f.render.ShowText(ctx, identity, text, options)
}

// cartAction handles add:/inc:/dec:/del: buttons and re-renders the cart.
func (f *Flows) cartAction(ctx context.Context, ev transport.Event) error {
	verb, rawID, ok := strings.Cut(ev.Action, ":")
	if !ok {
		return domain.Validation("unknown cart action")
	}
	productID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return domain.Validation("unknown product")
	}

	user, err := f.users.FindByChatID(ctx, ev.Identity)
	if err != nil {
		return err
	}

	switch verb {
	case "add":
		err = f.cart.AddOrIncrement(ctx, user.ID, productID)
	case "inc":
		err = f.cart.Increment(ctx, user.ID, productID)
	case "dec":
		err = f.cart.Decrement(ctx, user.ID, productID)
	case "del":
		err = f.cart.Remove(ctx, user.ID, productID)
	default:
		return domain.Validation("unknown cart action")
	}
	if err != nil {
		return err
	}

	return f.showCart(ctx, ev)
}

func (f *Flows) showCart(ctx context.Context, ev transport.Event) error {
	user, err := f.users.FindByChatID(ctx, ev.Identity)
	if err != nil {
		return err
	}
	lines, err := f.cart.Snapshot(ctx, user.ID)
	if err != nil {
		return err
	}

	if len(lines) == 0 {
		return f.render.ShowText(ctx, ev.Identity, "Your cart is empty.", []transport.Option{
			{Label: "To the catalog", Action: actCatalog},
			{Label: "Back", Action: actHome},
		})
	}

	total, currency, err := domain.SnapshotTotal(lines)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("Cart\n\n")
	var options []transport.Option
	for _, l := range lines {
		fmt.Fprintf(&b, "- %s x %d = %s\n", l.Product.Title, l.Qty, domain.FormatMoney(l.Subtotal(), l.Product.Currency))
		pid := strconv.FormatInt(l.Product.ID, 10)
		options = append(options,
			transport.Option{Label: "- " + l.Product.Title, Action: prefixDec + pid},
			transport.Option{Label: "+ " + l.Product.Title, Action: prefixInc + pid},
			transport.Option{Label: "Remove " + l.Product.Title, Action: prefixDel + pid},
		)
	}
	fmt.Fprintf(&b, "\nTotal: %s", domain.FormatMoney(total, currency))
	options = append(options,
		transport.Option{Label: "Checkout", Action: actCheckout},
		transport.Option{Label: "Back", Action: actCatalog},
	)

	return f.render.ShowText(ctx, ev.Identity, b.String(), options)
}

func (f *Flows) showCategory(ctx context.Context, identity int64, category string) error {
	switch category {
	case "disposables":
		options := make([]transport.Option, 0, len(brands)+1)
		for _, brand := range brands {
			options = append(options, transport.Option{
				Label:  brand,
				Action: prefixBrand + strings.ToLower(brand),
			})
		}
		options = append(options, transport.Option{Label: "Back", Action: actInterests})
		return f.render.ShowText(ctx, identity, "Choose a manufacturer:", options)

	case "liquids":
		text, err := f.catalog.SectionText(ctx, "liquids",
			"Liquids and cartridges\n\nPress Order, then describe the flavor and quantity.")
		if err != nil {
			return err
		}
		return f.render.ShowText(ctx, identity, text, []transport.Option{
			{Label: "Order", Action: actOrderLiquid},
			{Label: "Back", Action: actInterests},
		})

	case "pods":
		text, err := f.catalog.SectionText(ctx, "pods",
			"Pod systems\n\nPress Order, then describe the model.")
		if err != nil {
			return err
		}
		return f.render.ShowText(ctx, identity, text, []transport.Option{
			{Label: "Order", Action: actOrderPods},
			{Label: "Back", Action: actInterests},
		})

	default:
		return f.showInterests(ctx, identity)
	}
}

func (f *Flows) showBrandCard(ctx context.Context, identity int64, brand string) error {
	title := capitalize(brand)
	text, err := f.catalog.SectionText(ctx, "brand:"+strings.ToLower(brand),
		title+"\n\nPress Order, then describe the flavor and quantity.")
	if err != nil {
		return err
	}

	options := []transport.Option{
		{Label: "Order", Action: prefixOrderBrand + strings.ToLower(brand)},
		{Label: "Back", Action: prefixCategory + "disposables"},
	}

	photos, err := f.catalog.SectionPhotos(ctx, "brand:"+strings.ToLower(brand))
	if err != nil {
		return err
	}
	if len(photos) > 0 {
		return f.render.ShowPhoto(ctx, identity, photos[0], text, options)
	}
	return f.render.ShowText(ctx, identity, text, options)
}
