package ledger

import (
	"context"
	"errors"
	"fmt"

	"ledgerbook/internal/blob"
	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
	"ledgerbook/internal/settings"
)

// DefaultKey is the settings key holding the serialized ledger.
const DefaultKey = "data"

// Persister reads and writes the whole ledger at once.
type Persister interface {
	Load(ctx context.Context) ([]core.ExpenseRecord, error)
	Save(ctx context.Context, records []core.ExpenseRecord) error
}

// SettingsPersister keeps the ledger as one blob under a settings key.
type SettingsPersister struct {
	store  settings.Store
	key    string
	logger *log.Logger
}

var _ Persister = (*SettingsPersister)(nil)

func NewSettingsPersister(store settings.Store, key string, logger *log.Logger) *SettingsPersister {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SettingsPersister{
		store:  store,
		key:    key,
		logger: logger.WithComponent(log.ComponentStorage),
	}
}

// Load never reports malformed content: a broken blob is an empty ledger and
// broken elements are dropped. Only store failures are returned.
func (p *SettingsPersister) Load(ctx context.Context) ([]core.ExpenseRecord, error) {
	raw, err := p.store.GetString(ctx, p.key, blob.EmptyBlob)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", p.key, err)
	}

	records, skipped, err := blob.Decode([]byte(raw))
	if errors.Is(err, core.ErrDecode) {
		p.logger.WarnContext(ctx, "Discarding unreadable ledger blob",
			log.FieldKey, p.key,
			log.FieldErrorType, log.ErrorTypeDecode,
			log.FieldError, err)
		return []core.ExpenseRecord{}, nil
	}
	if skipped > 0 {
		p.logger.DebugContext(ctx, "Skipped malformed ledger entries",
			log.FieldKey, p.key,
			log.FieldSkipped, skipped,
			log.FieldCount, len(records))
	}
	return records, nil
}

func (p *SettingsPersister) Save(ctx context.Context, records []core.ExpenseRecord) error {
	data, err := blob.Encode(records)
	if err != nil {
		return err
	}
	if err := p.store.SetString(ctx, p.key, string(data)); err != nil {
		return fmt.Errorf("write %q: %w", p.key, err)
	}
	return nil
}
