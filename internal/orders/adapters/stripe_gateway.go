package adapters

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/stripe/stripe-go/v83"
	checkoutsession "github.com/stripe/stripe-go/v83/checkout/session"
	"go.uber.org/zap"

	"go-storefront/internal/orders/ports"
	"go-storefront/pkg/logger"
)

const (
	// Stripe rejects metadata values longer than this
	metadataValueLimit = 500
	metadataChunkSep   = "__"
)

// StripeGateway implements PaymentGateway with Stripe Checkout.
// The API key is set once on stripe.Key at startup.
type StripeGateway struct {
	currency string
	log      *logger.Logger

	newSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getSession func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeGateway creates a new Stripe checkout gateway
func NewStripeGateway(currency string, log *logger.Logger) *StripeGateway {
	if currency == "" {
		currency = "usd"
	}
	return &StripeGateway{
		currency:   strings.ToLower(currency),
		log:        log,
		newSession: checkoutsession.New,
		getSession: checkoutsession.Get,
	}
}

// CreateSession opens a hosted checkout session carrying the order intent in metadata
func (g *StripeGateway) CreateSession(ctx context.Context, req ports.CreateSessionRequest) (*ports.Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.ImageRef != "" {
			product.Images = []*string{stripe.String(item.ImageRef)}
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.BuyerID),
		Metadata:          chunkMetadata(req.Metadata),
	}

	session, err := g.newSession(params)
	if err != nil {
		g.log.WithContext(ctx).Error("stripe checkout session creation failed",
			zap.Error(err),
			zap.String("buyer_id", req.BuyerID),
		)
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &ports.Session{ID: session.ID, RedirectURL: session.URL}, nil
}

// GetSessionVerdict retrieves the session and reports whether it was paid
func (g *StripeGateway) GetSessionVerdict(ctx context.Context, sessionID string) (*ports.SessionVerdict, error) {
	session, err := g.getSession(sessionID, nil)
	if err != nil {
		g.log.WithContext(ctx).Error("stripe checkout session lookup failed",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		return nil, fmt.Errorf("get checkout session: %w", err)
	}

	verdict := &ports.SessionVerdict{
		Paid:     session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: joinMetadata(session.Metadata),
	}
	if session.PaymentIntent != nil {
		verdict.TransactionID = session.PaymentIntent.ID
	}

	return verdict, nil
}

// chunkMetadata splits long values into key, key__1, key__2 and so on
func chunkMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for key, value := range meta {
		if len(value) <= metadataValueLimit {
			out[key] = value
			continue
		}
		for i := 0; len(value) > 0; i++ {
			n := metadataValueLimit
			if n >= len(value) {
				n = len(value)
			} else {
				// Never split a multi-byte character across chunks
				for n > 0 && !utf8.RuneStart(value[n]) {
					n--
				}
			}
			chunkKey := key
			if i > 0 {
				chunkKey = key + metadataChunkSep + strconv.Itoa(i)
			}
			out[chunkKey] = value[:n]
			value = value[n:]
		}
	}
	return out
}

// joinMetadata reverses chunkMetadata
func joinMetadata(meta map[string]string) map[string]string {
	type chunk struct {
		index int
		value string
	}
	parts := make(map[string][]chunk, len(meta))
	for key, value := range meta {
		base, index := key, 0
		if i := strings.LastIndex(key, metadataChunkSep); i > 0 {
			if n, err := strconv.Atoi(key[i+len(metadataChunkSep):]); err == nil && n > 0 {
				base, index = key[:i], n
			}
		}
		parts[base] = append(parts[base], chunk{index: index, value: value})
	}

	out := make(map[string]string, len(parts))
	for key, chunks := range parts {
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })
		var b strings.Builder
		for _, c := range chunks {
			b.WriteString(c.value)
		}
		out[key] = b.String()
	}
	return out
}
