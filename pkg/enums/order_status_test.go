package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPaid, OrderStatusShipped, true},
		{OrderStatusPaid, OrderStatusCancelled, true},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.allowed, got)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderStatusDelivered.IsTerminal() {
		t.Fatal("delivered should be terminal")
	}
	if !OrderStatusCancelled.IsTerminal() {
		t.Fatal("cancelled should be terminal")
	}
	if OrderStatusPending.IsTerminal() {
		t.Fatal("pending should not be terminal")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := ParseOrderStatus("shipped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOrderStatus("SHIPPED"); err == nil {
		t.Fatal("expected case-sensitive parse to fail")
	}
	if _, err := ParseOrderStatus("unknown"); err == nil {
		t.Fatal("expected invalid status to fail")
	}
}
