package backup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raulshma/uniarr-sub005/internal/storage"
)

type Exporter struct {
	stores   Stores
	producer string
	logger   *slog.Logger
	events   EventRecorder
}

func NewExporter(stores Stores, producer string, logger *slog.Logger, events EventRecorder) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		stores:   stores,
		producer: producer,
		logger:   logger,
		events:   events,
	}
}

// Export collects the selected categories, partitions out the sensitive
// fields, optionally seals them, and returns the serialized document.
func (e *Exporter) Export(ctx context.Context, opts ExportOptions) ([]byte, *Manifest, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}

	doc, err := e.buildDocument(ctx, opts)
	if err != nil {
		e.recordEvent(ctx, "export", "failure", err.Error())
		return nil, nil, err
	}

	raw, err := EncodeDocument(doc)
	if err != nil {
		e.recordEvent(ctx, "export", "failure", err.Error())
		return nil, nil, err
	}

	e.logger.Info("backup exported",
		slog.Bool("encrypted", doc.Encrypted),
		slog.Int("categories", len(doc.AppData)),
	)
	e.recordEvent(ctx, "export", "success", fmt.Sprintf("encrypted=%t", doc.Encrypted))
	return raw, &doc.Manifest, nil
}

func (e *Exporter) buildDocument(ctx context.Context, opts ExportOptions) (*Document, error) {
	snapshot, err := Collect(ctx, e.stores, opts)
	if err != nil {
		return nil, err
	}

	publicSnap, sensitiveSnap := Partition(snapshot, opts)

	public, err := marshalSnapshot(publicSnap)
	if err != nil {
		return nil, err
	}

	if len(sensitiveSnap) == 0 {
		return BuildDocument(public, "", nil, e.producer), nil
	}

	sensitive, err := marshalSnapshot(sensitiveSnap)
	if err != nil {
		return nil, err
	}

	if !opts.EncryptSensitive {
		for name, value := range sensitive {
			public[name] = value
		}
		return BuildDocument(public, "", nil, e.producer), nil
	}

	payload, info, err := sealSensitive(sensitive, opts.Password)
	if err != nil {
		return nil, err
	}
	return BuildDocument(public, payload, info, e.producer), nil
}

func (e *Exporter) recordEvent(ctx context.Context, action, result, detail string) {
	if e.events == nil {
		return
	}
	event := &storage.BackupEvent{Action: action, Result: result, Detail: detail}
	if err := e.events.Record(ctx, event); err != nil {
		e.logger.Warn("record backup event", slog.String("action", action), slog.Any("error", err))
	}
}
