package payments

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/payment-templates", h.ListTemplates)

	r.Route("/proposals/{id}/payments", func(r chi.Router) {
		r.Get("/", h.ListSchedule)
		r.Get("/status", h.ScheduleStatus)
		r.Post("/", h.CreateTerm)
		r.Post("/template", h.ApplyTemplate)
	})

	r.Route("/payment-terms/{termID}", func(r chi.Router) {
		r.Put("/", h.UpdateTerm)
		r.Delete("/", h.DeleteTerm)
		r.Post("/pay", h.RecordPayment)
		r.Post("/unpay", h.UndoPayment)
	})
}
