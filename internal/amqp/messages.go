package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/api"
	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
)

// LedgerChangedMessage describes one ledger change and the totals after it.
// Record is omitted for loads.
type LedgerChangedMessage struct {
	Op        ledger.Op       `json:"op"`
	Index     int             `json:"index"`
	Record    *api.Record     `json:"record,omitempty"`
	Count     int             `json:"count"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewLedgerChangedMessage(c ledger.Change, at time.Time) *LedgerChangedMessage {
	msg := &LedgerChangedMessage{
		Op:        c.Op,
		Index:     c.Index,
		Count:     len(c.Records),
		Total:     core.Total(c.Records),
		Timestamp: at.UTC(),
	}
	if c.Op != ledger.OpLoad {
		r := api.FromCore(c.Record)
		msg.Record = &r
	}
	return msg
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
