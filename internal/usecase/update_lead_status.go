package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

type UpdateLeadStatusUseCase struct {
	Repo   entity.LeadRepositoryInterface
	Logger *zap.Logger
}

func NewUpdateLeadStatusUseCase(repo entity.LeadRepositoryInterface, logger *zap.Logger) *UpdateLeadStatusUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateLeadStatusUseCase{Repo: repo, Logger: logger}
}

func (uc *UpdateLeadStatusUseCase) Execute(ctx context.Context, leadID, status string) (*entity.Lead, error) {
	next, err := entity.ParseLeadStatus(status)
	if err != nil {
		return nil, &DomainError{Code: CodeInvalidStatus, Message: "estado inválido: " + status}
	}

	lead, err := uc.Repo.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, &DomainError{Code: CodeLeadNotFound, Message: "lead no encontrado"}
		}
		return nil, &TechnicalError{Code: CodeDatabase, Message: "erro ao buscar lead", Err: err}
	}

	if !lead.Status.CanTransitionTo(next) {
		return nil, &DomainError{
			Code:    CodeInvalidTransition,
			Message: "no se puede pasar de " + string(lead.Status) + " a " + string(next),
		}
	}

	if err := uc.Repo.UpdateStatus(ctx, lead.ID, next); err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, &DomainError{Code: CodeLeadNotFound, Message: "lead no encontrado"}
		}
		return nil, &TechnicalError{Code: CodeDatabase, Message: "erro ao atualizar estado", Err: err}
	}

	uc.Logger.Info("estado do lead atualizado",
		zap.String("lead_id", lead.ID),
		zap.String("from", string(lead.Status)),
		zap.String("to", string(next)),
	)
	lead.Status = next
	return lead, nil
}
