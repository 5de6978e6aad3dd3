package unitofwork

import (
	"context"

	"github.com/stirosario/sti-ai-chat-sub006/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	TicketRepository() contract.TicketRepository
}
