package proposals

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/proposals", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Show)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/status", h.ChangeStatus)
			r.Get("/summary", h.Summary)

			r.Post("/items", h.AddItem)
			r.Put("/items/{itemID}", h.UpdateItem)
			r.Delete("/items/{itemID}", h.DeleteItem)

			r.Post("/engineering", h.AddEngineering)
			r.Delete("/engineering/{entryID}", h.DeleteEngineering)

			r.Post("/expenses", h.AddExpense)
			r.Delete("/expenses/{expenseID}", h.DeleteExpense)

			r.Post("/taxes", h.AddTax)
			r.Delete("/taxes/{taxID}", h.DeleteTax)
		})
	})
}
