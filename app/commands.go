package app

import (
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-report/command"
	"github.com/goliatone/go-report/export"
	"github.com/goliatone/go-report/query"
)

// RegisterHandlers wires report commands and queries to go-command. Queries
// on history are only registered when history is enabled.
func (a *App) RegisterHandlers(reg *gcmd.Registry) ([]dispatcher.Subscription, error) {
	if a == nil || a.Exporter == nil {
		return nil, errors.New("app exporter is required", errors.CategoryValidation).
			WithTextCode("EXPORTER_REQUIRED")
	}

	exportHandler := command.NewExportReportHandler(a, a.Store)
	deleteHandler := command.NewDeleteReportHandler(a.Store)
	cleanupHandler := command.NewCleanupReportsHandler(a)
	download := query.NewDownloadMetadataHandler(a.Store)

	subscriptions := []dispatcher.Subscription{
		dispatcher.SubscribeCommand(exportHandler),
		dispatcher.SubscribeCommand(deleteHandler),
		dispatcher.SubscribeCommand(cleanupHandler),
		dispatcher.SubscribeQuery(download),
	}
	handlers := []any{exportHandler, deleteHandler, cleanupHandler, download}

	if a.History != nil {
		var history export.HistoryReader = a.History
		status := query.NewReportStatusHandler(history)
		list := query.NewReportHistoryHandler(history)
		subscriptions = append(subscriptions,
			dispatcher.SubscribeQuery(status),
			dispatcher.SubscribeQuery(list),
		)
		handlers = append(handlers, status, list)
	}

	if reg != nil {
		for _, handler := range handlers {
			if err := reg.RegisterCommand(handler); err != nil {
				return subscriptions, err
			}
		}
	}
	return subscriptions, nil
}
