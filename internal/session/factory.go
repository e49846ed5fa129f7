package session

import (
	"log/slog"

	"hiredup/internal/notify"
	"hiredup/internal/slots"
)

// Factory builds a fresh anonymous Gate per request over shared collaborators.
type Factory struct {
	Slots     slots.Store
	Verifier  Verifier
	Registrar Registrar
	Notifier  notify.Notifier
}

// New returns an anonymous gate that logs through logger.
func (f Factory) New(logger *slog.Logger) *Gate {
	return New(f.Slots, f.Verifier, f.Registrar, f.Notifier, logger)
}
