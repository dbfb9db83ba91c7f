package provider

import (
	"context"

	"dispute-assistant/internal/domain/dto"
	"dispute-assistant/internal/domain/entities"
)

type IAssistantProvider interface {
	Chat(ctx context.Context, message string) (dto.ChatResponse, error)
	UploadFiles(ctx context.Context, files []entities.PendingAttachment) error
	ConfirmReport(ctx context.Context, confirmed bool) (dto.ConfirmReportResponse, error)
	AfterReport(ctx context.Context, message string) (dto.AfterReportResponse, error)
}
