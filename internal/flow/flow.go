package flow

import (
	"context"
	"strings"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/repo/postgres"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/service"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/session"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/transport"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/events"
)

// Button action tokens. These are the only values that come back in
// KindAction events.
const (
	actCatalog     = "catalog"
	actCart        = "cart"
	actOrders      = "orders"
	actHelp        = "help"
	actHome        = "home"
	actInterests   = "main_catalog"
	actCheckout    = "checkout"
	actConfirm     = "confirm_order"
	actCancelStep  = "cancel_order_step"
	actVerifyEmail = "verify_email"
	actOrderLiquid = "order:liquids"
	actOrderPods   = "order:pods"

	prefixProduct    = "p:"
	prefixAdd        = "add:"
	prefixInc        = "inc:"
	prefixDec        = "dec:"
	prefixDel        = "del:"
	prefixCategory   = "cat:"
	prefixBrand      = "brand:"
	prefixOrderBrand = "order:brand:"
)

var brands = []string{"Waka", "Vozol", "Aerovibe", "Elfbar"}

// Flows wires every conversation flow to the coordinator: menu navigation,
// verification, catalog browsing, cart mutation, checkout and the manual
// category order flow.
type Flows struct {
	users    postgres.UsersRepo
	verify   service.VerifyService
	cart     service.CartService
	checkout service.CheckoutService
	catalog  service.CatalogService
	render   transport.Renderer
	bus      events.Publisher
}

func New(
	users postgres.UsersRepo,
	verify service.VerifyService,
	cart service.CartService,
	checkout service.CheckoutService,
	catalog service.CatalogService,
	render transport.Renderer,
	bus events.Publisher,
) *Flows {
	return &Flows{
		users:    users,
		verify:   verify,
		cart:     cart,
		checkout: checkout,
		catalog:  catalog,
		render:   render,
		bus:      bus,
	}
}

func (f *Flows) Register(c *session.Coordinator) {
	c.HandleFallback(f.onText)
	c.HandleContact(f.onContact)
	c.HandleAction(f.onAction)
	c.HandlePhoto(f.onPhoto)

	c.HandleStep(domain.StepAwaitingEmail, f.onEmailInput)
	c.HandleStep(domain.StepAwaitingEmailCode, f.onEmailCode)
	c.HandleStep(domain.StepAwaitingAddress, f.onAddress)
	c.HandleStep(domain.StepAwaitingNote, f.onNote)
	c.HandleStep(domain.StepAwaitingDetails, f.onOrderDetails)
	// StepAwaitingConfirm consumes only the confirm button; free text while
	// waiting falls through to the menu path.
}

// onText is the default path: any text that matches no active step is a
// menu interaction, never an error.
func (f *Flows) onText(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	text := strings.TrimSpace(ev.Text)

	switch {
	case text == "/start":
		return f.start(ctx, ev)
	case strings.EqualFold(text, "verify email"):
		return f.startEmailVerification(ctx, ev, conv)
	default:
		return f.showMainMenu(ctx, ev.Identity)
	}
}

// start registers the user on first contact and gates the shop behind phone
// verification.
func (f *Flows) start(ctx context.Context, ev transport.Event) error {
	user, err := f.users.EnsureByChatID(ctx, ev.Identity, ev.FullName, ev.Username)
	if err != nil {
		return err
	}

	if !user.Verified || user.Phone == nil {
		return f.render.ShowText(ctx, ev.Identity,
			"Hi! To use the shop, please confirm your phone number.",
			[]transport.Option{{Label: "Confirm phone number", Action: "share_contact"}})
	}

	return f.showMainMenu(ctx, ev.Identity)
}

// onContact is the trusted contact-share verification path.
func (f *Flows) onContact(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	if _, err := f.users.EnsureByChatID(ctx, ev.Identity, ev.FullName, ev.Username); err != nil {
		return err
	}
	if err := f.verify.VerifyPhone(ctx, ev.Identity, ev.Phone); err != nil {
		return err
	}

	if err := f.render.ShowText(ctx, ev.Identity, "Phone number confirmed.", nil); err != nil {
		return err
	}
	return f.showMainMenu(ctx, ev.Identity)
}

// onPhoto: the conversation flows have no step that expects a photo, so it
// is acknowledged with the menu.
func (f *Flows) onPhoto(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	return f.showMainMenu(ctx, ev.Identity)
}

func (f *Flows) onAction(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	action := ev.Action

	switch {
	case action == actHome:
		return f.showMainMenu(ctx, ev.Identity)
	case action == actInterests:
		return f.showInterests(ctx, ev.Identity)
	case action == actHelp:
		return f.showHelp(ctx, ev.Identity)
	case action == actCatalog:
		return f.showCatalog(ctx, ev.Identity)
	case action == actCart:
		return f.showCart(ctx, ev)
	case action == actOrders:
		return f.showOrders(ctx, ev)
	case action == actCheckout:
		return f.startCheckout(ctx, ev, conv)
	case action == actConfirm:
		return f.confirmManualOrder(ctx, ev, conv)
	case action == actCancelStep:
		return f.cancelStep(ctx, ev, conv)
	case action == actVerifyEmail:
		return f.startEmailVerification(ctx, ev, conv)
	case action == actOrderLiquid:
		return f.startCategoryOrder(ctx, ev, conv, domain.CategoryLiquids)
	case action == actOrderPods:
		return f.startCategoryOrder(ctx, ev, conv, domain.CategoryPods)
	case strings.HasPrefix(action, prefixOrderBrand):
		return f.startBrandOrder(ctx, ev, conv, strings.TrimPrefix(action, prefixOrderBrand))
	case strings.HasPrefix(action, prefixCategory):
		return f.showCategory(ctx, ev.Identity, strings.TrimPrefix(action, prefixCategory))
	case strings.HasPrefix(action, prefixBrand):
		return f.showBrandCard(ctx, ev.Identity, strings.TrimPrefix(action, prefixBrand))
	case strings.HasPrefix(action, prefixProduct):
		return f.showProduct(ctx, ev.Identity, action[len(prefixProduct):])
	case strings.HasPrefix(action, prefixAdd),
		strings.HasPrefix(action, prefixInc),
		strings.HasPrefix(action, prefixDec),
		strings.HasPrefix(action, prefixDel):
		return f.cartAction(ctx, ev)
	default:
		return f.showMainMenu(ctx, ev.Identity)
	}
}

func (f *Flows) showMainMenu(ctx context.Context, identity int64) error {
	return f.render.ShowText(ctx, identity, "Choose an action:", []transport.Option{
		{Label: "Catalog", Action: actInterests},
		{Label: "My orders", Action: actOrders},
		{Label: "Help", Action: actHelp},
	})
}

func (f *Flows) showInterests(ctx context.Context, identity int64) error {
	return f.render.ShowText(ctx, identity, "What are you interested in?", []transport.Option{
		{Label: "1) Disposable devices", Action: prefixCategory + "disposables"},
		{Label: "2) Liquids and cartridges", Action: prefixCategory + "liquids"},
		{Label: "3) Pod systems", Action: prefixCategory + "pods"},
		{Label: "Back", Action: actHome},
	})
}

func (f *Flows) showHelp(ctx context.Context, identity int64) error {
	text := "Help:\n" +
		"- Browse the catalog and add products to your cart.\n" +
		"- Place an order and a manager will contact you about payment and delivery.\n" +
		"- Basic verification is by phone number. You can also verify your email."
	return f.render.ShowText(ctx, identity, text, []transport.Option{
		{Label: "Verify email", Action: actVerifyEmail},
		{Label: "Back", Action: actHome},
	})
}
