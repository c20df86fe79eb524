package usecase

import (
	"context"
	"errors"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

// MultiNotifier chama todos os notifiers, mesmo se um deles falhar.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n entity.LeadNotification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
