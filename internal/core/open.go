package core

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/blob"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/config"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/ledger"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/notify"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/semaphore"
)

// Open wires a Service from pipeline settings: the blob store, the marker
// store, the ledger and the configured notifiers. Close the returned service
// to release the ledger.
func Open(ctx context.Context, pipeline config.Pipeline, opts ...ServiceOption) (*Service, error) {
	o := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	objects, err := blob.Open(ctx, pipeline.BlobOptions())
	if err != nil {
		return nil, fmt.Errorf("core: open blob store: %w", err)
	}
	markers, err := semaphore.Open(semaphore.Driver(pipeline.Markers.Driver), pipeline.SemaphoreDir(), objects)
	if err != nil {
		return nil, fmt.Errorf("core: open semaphore store: %w", err)
	}
	entries, err := ledger.Open(ctx, pipeline.LedgerOptions())
	if err != nil {
		return nil, fmt.Errorf("core: open ledger: %w", err)
	}
	svc, err := NewService(pipeline, Dependencies{
		Markers:  markers,
		Objects:  objects,
		Ledger:   entries,
		Notifier: Notifiers(pipeline, o.logger),
	}, opts...)
	if err != nil {
		_ = entries.Close()
		return nil, err
	}
	return svc, nil
}

// Notifiers builds the notifier chain from the notify section. The log
// notifier is always present; SMTP and webhook are added when configured.
func Notifiers(pipeline config.Pipeline, logger Logger) notify.Notifier {
	chain := notify.Multi{notify.LogNotifier{Pipeline: pipeline.Name, Logger: logger}}
	n := pipeline.Notify
	if n.SMTPAddr != "" {
		chain = append(chain, notify.SMTPNotifier{
			Pipeline:   pipeline.Name,
			Addr:       n.SMTPAddr,
			From:       n.Sender,
			Recipients: n.Recipients,
		})
	}
	if n.WebhookURL != "" {
		chain = append(chain, notify.WebhookNotifier{
			Pipeline: pipeline.Name,
			URL:      n.WebhookURL,
			Client:   &http.Client{Timeout: 10 * time.Second},
		})
	}
	return chain
}
