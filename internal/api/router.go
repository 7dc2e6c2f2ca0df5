package api

import "github.com/go-chi/chi/v5"

// AuthConfig controls API authentication.
type AuthConfig struct {
	// Enabled requires Token as a Bearer token on every route.
	Enabled bool
	Token   string
	// AdminToken guards /admin routes. Empty closes them. With Enabled set,
	// send it as X-Admin-Token.
	AdminToken string
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(deps Deps, auth AuthConfig) chi.Router {
	h := NewHandler(deps)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth.Enabled, auth.Token))

	// Captures.
	r.Post("/capture", h.CreateCapture)
	r.Post("/capture/upload", h.UploadCapture)
	r.Get("/captures", h.ListCaptures)
	r.Get("/captures/{id}", h.GetCapture)
	r.Delete("/captures/{id}", h.DeleteCapture)

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Put("/notes/sync", h.SyncNote)
	r.Get("/notes/by-path/*", h.GetNoteByPath)
	r.Get("/notes/{id}", h.GetNote)
	r.Patch("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Taxonomy and search.
	r.Get("/areas", h.ListAreas)
	r.Get("/areas/{area}/notes", h.AreaNotes)
	r.Get("/search", h.Search)

	// Events.
	r.Get("/events", h.ListEvents)
	r.Get("/events/upcoming", h.UpcomingEvents)
	r.Post("/events", h.CreateEvent)
	r.Patch("/events/{id}", h.UpdateEvent)
	r.Delete("/events/{id}", h.DeleteEvent)

	r.Get("/activity", h.ListActivity)
	r.Post("/ask", h.Ask)
	r.Get("/attachments/{filename}", h.ServeAttachment)

	if deps.Stream != nil {
		r.Get("/stream", deps.Stream.ServeHTTP)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminMiddleware(auth.AdminToken))
		r.Post("/process", h.ProcessCapture)
		r.Post("/extract", h.ExtractEvents)
	})

	return r
}
