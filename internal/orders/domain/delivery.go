package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is a step of the shipment progression
type DeliveryStatus string

const (
	DeliveryStatusProcessing     DeliveryStatus = "Processing"
	DeliveryStatusPacked         DeliveryStatus = "Packed"
	DeliveryStatusShipped        DeliveryStatus = "Shipped"
	DeliveryStatusOutForDelivery DeliveryStatus = "OutForDelivery"
	DeliveryStatusDelivered      DeliveryStatus = "Delivered"
	DeliveryStatusCancelled      DeliveryStatus = "Cancelled"
)

// DefaultDeliveryLeadDays is added to the creation time for the expected date
const DefaultDeliveryLeadDays = 5

// progression order; Cancelled sits outside it
var deliveryRank = map[DeliveryStatus]int{
	DeliveryStatusProcessing:     0,
	DeliveryStatusPacked:         1,
	DeliveryStatusShipped:        2,
	DeliveryStatusOutForDelivery: 3,
	DeliveryStatusDelivered:      4,
}

// ParseDeliveryStatus matches a status name ignoring case, spaces, dashes and underscores
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range []DeliveryStatus{
		DeliveryStatusProcessing,
		DeliveryStatusPacked,
		DeliveryStatusShipped,
		DeliveryStatusOutForDelivery,
		DeliveryStatusDelivered,
		DeliveryStatusCancelled,
	} {
		if key != "" && key == strings.ToLower(string(st)) {
			return st, nil
		}
	}
	return "", NewInvalidDeliveryStatus(s)
}

// Terminal reports whether no further progression is expected
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusCancelled
}

// StatusChange is one append-only history entry
type StatusChange struct {
	Status    DeliveryStatus
	ChangedAt time.Time
}

// Delivery tracks the shipment of exactly one order
type Delivery struct {
	ID                 uuid.UUID
	OrderID            uuid.UUID
	CurrentStatus      DeliveryStatus
	History            []StatusChange
	ExpectedDate       time.Time
	ActualDeliveryDate *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewDelivery opens a delivery in Processing with its first history entry
func NewDelivery(orderID uuid.UUID, now time.Time, leadDays int) *Delivery {
	if leadDays <= 0 {
		leadDays = DefaultDeliveryLeadDays
	}
	return &Delivery{
		ID:            uuid.New(),
		OrderID:       orderID,
		CurrentStatus: DeliveryStatusProcessing,
		History:       []StatusChange{{Status: DeliveryStatusProcessing, ChangedAt: now}},
		ExpectedDate:  now.AddDate(0, 0, leadDays),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanTransition checks next against the forward-only progression: moves go up
// the ladder, Cancelled is reachable from any non-terminal state, and terminal
// states accept only themselves.
func (d *Delivery) CanTransition(next DeliveryStatus) error {
	cur := d.CurrentStatus
	if next == cur {
		return nil
	}
	if cur.Terminal() {
		return NewDeliveryTransitionRejected(cur, next)
	}
	if next == DeliveryStatusCancelled {
		return nil
	}
	if deliveryRank[next] < deliveryRank[cur] {
		return NewDeliveryTransitionRejected(cur, next)
	}
	return nil
}

// Transition sets the current status and appends to history. With forwardOnly
// unset any recognized status is accepted. Reaching Delivered stamps the
// actual delivery date unless one is supplied.
func (d *Delivery) Transition(next DeliveryStatus, actual *time.Time, now time.Time, forwardOnly bool) error {
	if forwardOnly {
		if err := d.CanTransition(next); err != nil {
			return err
		}
	}

	d.CurrentStatus = next
	d.History = append(d.History, StatusChange{Status: next, ChangedAt: now})
	d.UpdatedAt = now

	switch {
	case actual != nil:
		at := *actual
		d.ActualDeliveryDate = &at
	case next == DeliveryStatusDelivered && d.ActualDeliveryDate == nil:
		at := now
		d.ActualDeliveryDate = &at
	}
	return nil
}

// LastChange returns the most recent history entry
func (d *Delivery) LastChange() StatusChange {
	if len(d.History) == 0 {
		return StatusChange{Status: d.CurrentStatus, ChangedAt: d.UpdatedAt}
	}
	return d.History[len(d.History)-1]
}
