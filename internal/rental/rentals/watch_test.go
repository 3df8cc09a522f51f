package rentals

import "testing"

func TestHub_SubscribeAndCancel(t *testing.T) {
	h := NewHub()
	if !h.Empty() {
		t.Fatal("new hub must be empty")
	}

	var got1, got2 int
	cancel1 := h.Subscribe(func(snapshot []RentalResponse) { got1 = len(snapshot) })
	cancel2 := h.Subscribe(func(snapshot []RentalResponse) { got2 = len(snapshot) })
	if h.Empty() {
		t.Fatal("hub must not be empty after subscribe")
	}

	h.Notify(make([]RentalResponse, 3))
	if got1 != 3 || got2 != 3 {
		t.Fatalf("notify missed a subscriber: got1=%d got2=%d", got1, got2)
	}

	cancel1()
	h.Notify(make([]RentalResponse, 5))
	if got1 != 3 {
		t.Fatal("cancelled subscriber must not receive updates")
	}
	if got2 != 5 {
		t.Fatalf("remaining subscriber missed update: got2=%d", got2)
	}

	// cancel は冪等
	cancel1()
	cancel2()
	if !h.Empty() {
		t.Fatal("hub must be empty after all cancels")
	}
}
