package event

import "sort"

// AnyEvent receives every dispatched event after its type-specific callbacks.
const AnyEvent = "stripe.event"

var knownTypes = []string{
	"account.updated",
	"account.application.deauthorized",
	"account.external_account.created",
	"account.external_account.deleted",
	"account.external_account.updated",
	"application_fee.created",
	"application_fee.refunded",
	"application_fee.refund.updated",
	"balance.available",
	"charge.captured",
	"charge.failed",
	"charge.pending",
	"charge.refunded",
	"charge.succeeded",
	"charge.updated",
	"charge.dispute.closed",
	"charge.dispute.created",
	"charge.dispute.funds_reinstated",
	"charge.dispute.funds_withdrawn",
	"charge.dispute.updated",
	"charge.refund.updated",
	"checkout.session.completed",
	"coupon.created",
	"coupon.deleted",
	"coupon.updated",
	"customer.created",
	"customer.deleted",
	"customer.updated",
	"customer.discount.created",
	"customer.discount.deleted",
	"customer.discount.updated",
	"customer.source.created",
	"customer.source.deleted",
	"customer.source.expiring",
	"customer.source.updated",
	"customer.subscription.created",
	"customer.subscription.deleted",
	"customer.subscription.trial_will_end",
	"customer.subscription.updated",
	"file.created",
	"invoice.created",
	"invoice.finalized",
	"invoice.marked_uncollectible",
	"invoice.payment_failed",
	"invoice.payment_succeeded",
	"invoice.sent",
	"invoice.upcoming",
	"invoice.updated",
	"invoice.voided",
	"invoiceitem.created",
	"invoiceitem.deleted",
	"invoiceitem.updated",
	"order.created",
	"order.payment_failed",
	"order.payment_succeeded",
	"order.updated",
	"order_return.created",
	"payout.canceled",
	"payout.created",
	"payout.failed",
	"payout.paid",
	"payout.updated",
	"plan.created",
	"plan.deleted",
	"plan.updated",
	"product.created",
	"product.deleted",
	"product.updated",
	"recipient.created",
	"recipient.deleted",
	"recipient.updated",
	"review.closed",
	"review.opened",
	"sigma.scheduled_query_run.created",
	"sku.created",
	"sku.deleted",
	"sku.updated",
	"source.canceled",
	"source.chargeable",
	"source.failed",
	"source.transaction.created",
	"transfer.created",
	"transfer.reversed",
	"transfer.updated",
	"ping",
	AnyEvent,

	// Deprecated by the 2017-04-06 API version, still delivered to older accounts.
	"transfer.failed",
	"transfer.paid",
}

// Catalog is the fixed set of event types callbacks may subscribe to.
type Catalog struct {
	types map[string]struct{}
}

func DefaultCatalog() *Catalog {
	return NewCatalog(knownTypes...)
}

func NewCatalog(types ...string) *Catalog {
	c := &Catalog{types: make(map[string]struct{}, len(types)+1)}
	for _, t := range types {
		c.types[t] = struct{}{}
	}
	c.types[AnyEvent] = struct{}{}
	return c
}

func (c *Catalog) Has(eventType string) bool {
	_, ok := c.types[eventType]
	return ok
}

func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.types))
	for t := range c.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
