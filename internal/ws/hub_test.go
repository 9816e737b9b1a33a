package ws

import (
	"encoding/json"
	"testing"
	"time"

	"matchbook/internal/engine"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, engine.NewManager(), nil)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func waitForClients(t *testing.T, hub *Hub, symbol string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(symbol) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d clients on %s", want, symbol)
}

// nextEvent drains a client's send queue until an event of the wanted type
// arrives. Earlier events (like the connect snapshot) are skipped.
func nextEvent(t *testing.T, c *Client, typ string) *Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case data := <-c.send:
			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				t.Fatalf("Bad event payload: %v", err)
			}
			if ev.Type == typ {
				return &ev
			}
		case <-deadline:
			t.Fatalf("No %q event received", typ)
		}
	}
}

func TestHub_BroadcastBookReachesFollowers(t *testing.T) {
	hub := startHub(t)

	follower := NewClient(hub, nil, "AAPL")
	other := NewClient(hub, nil, "MSFT")
	hub.Register(follower)
	hub.Register(other)
	waitForClients(t, hub, "AAPL", 1)
	waitForClients(t, hub, "MSFT", 1)

	bids := []engine.Level{{Price: 101, Quantity: 4, Orders: 1}}
	asks := []engine.Level{{Price: 103, Quantity: 2, Orders: 1}}
	hub.BroadcastBook("AAPL", bids, asks)

	ev := nextEvent(t, follower, "book")
	if ev.Symbol != "AAPL" {
		t.Errorf("Expected book event for AAPL, got %q", ev.Symbol)
	}

	raw, err := json.Marshal(ev.Data)
	if err != nil {
		t.Fatalf("Re-marshal event data: %v", err)
	}
	var snap SnapshotData
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("Decode book data: %v", err)
	}
	if len(snap.Bids) != 1 || snap.Bids[0].Price != 101 || snap.Bids[0].Quantity != 4 {
		t.Errorf("Expected one bid level 4@101, got %+v", snap.Bids)
	}
	if len(snap.Asks) != 1 || snap.Asks[0].Price != 103 {
		t.Errorf("Expected one ask level at 103, got %+v", snap.Asks)
	}

	// The MSFT client only ever sees its own connect snapshot.
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case data := <-other.send:
			var got Event
			if err := json.Unmarshal(data, &got); err == nil && got.Type == "book" {
				t.Error("MSFT client received a book event for AAPL")
			}
		case <-timeout:
			return
		}
	}
}

func TestHub_BroadcastBookReachesSubscribers(t *testing.T) {
	hub := startHub(t)

	subscriber := NewClient(hub, nil, "MSFT")
	hub.Register(subscriber)
	waitForClients(t, hub, "MSFT", 1)
	hub.Subscriptions().Subscribe(subscriber.ID(), "AAPL")

	hub.BroadcastBook("AAPL", []engine.Level{{Price: 50, Quantity: 1, Orders: 1}}, nil)

	ev := nextEvent(t, subscriber, "book")
	if ev.Symbol != "AAPL" {
		t.Errorf("Expected book event for AAPL, got %q", ev.Symbol)
	}
}
