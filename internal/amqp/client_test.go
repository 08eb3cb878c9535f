package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
)

type fakeChannel struct {
	declared   []string
	kind       string
	published  []amqp091.Publishing
	keys       []string
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	f.declared = append(f.declared, name)
	f.kind = kind
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func lunch() core.ExpenseRecord {
	return core.ExpenseRecord{Title: "Lunch", Amount: decimal.NewFromInt(15000), Category: "Food", Date: "Jan 01, 2024"}
}

func TestPublishAddChange(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "ledger", "ledger.changed", nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	if len(ch.declared) != 1 || ch.declared[0] != "ledger" || ch.kind != "topic" {
		t.Fatalf("unexpected exchange declaration: %v %q", ch.declared, ch.kind)
	}

	r := lunch()
	taxi := core.ExpenseRecord{Title: "Taxi", Amount: decimal.NewFromInt(8000), Category: "Transport"}
	change := ledger.Change{Op: ledger.OpAdd, Index: 0, Record: r, Records: []core.ExpenseRecord{r, taxi}}
	if err := p.Publish(context.Background(), change); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(ch.published) != 1 || ch.keys[0] != "ledger.changed" {
		t.Fatalf("expected one message on ledger.changed, got %d %v", len(ch.published), ch.keys)
	}
	pub := ch.published[0]
	if pub.DeliveryMode != amqp091.Persistent || pub.ContentType != "application/json" || pub.Type != "add" {
		t.Fatalf("unexpected publishing: %+v", pub)
	}

	msg, err := LedgerChangedMessageFromJSON(pub.Body)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Op != ledger.OpAdd || msg.Count != 2 || !msg.Total.Equal(decimal.NewFromInt(23000)) {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Record == nil || msg.Record.Title != "Lunch" || !msg.Timestamp.Equal(at) {
		t.Fatalf("unexpected record or timestamp: %+v", msg)
	}
}

func TestLoadMessageOmitsRecord(t *testing.T) {
	msg := NewLedgerChangedMessage(ledger.Change{Op: ledger.OpLoad, Index: -1}, time.Now())
	if msg.Record != nil || msg.Count != 0 || !msg.Total.IsZero() {
		t.Fatalf("unexpected load message: %+v", msg)
	}
}

func TestNotifySwallowsErrors(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("connection reset by peer")}
	p, err := newPublisher(ch, "ledger", "ledger.changed", nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	p.Notify(context.Background(), ledger.Change{Op: ledger.OpRemove, Record: lunch()})
	if len(ch.published) != 0 {
		t.Fatalf("nothing should be published")
	}
	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("close: %v closed=%v", err, ch.closed)
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed", fmt.Errorf("publish message: %w", amqp091.ErrClosed), true},
		{"other", errors.New("invalid routing key"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}
