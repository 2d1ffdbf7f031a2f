package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/johndosdos/hybridchat/internal"
	ratelimiter "github.com/johndosdos/hybridchat/internal/rate_limiter"
	ws "github.com/johndosdos/hybridchat/internal/websocket"
)

// RouterOpts carries everything the routes depend on.
type RouterOpts struct {
	Store          Store
	Hub            *ws.Hub
	Tokens         TokenOpts
	AllowedOrigins []string
	AuthLimiter    *ratelimiter.IPRateLimiter
	Ws             WsOpts
	EventsInterval time.Duration
}

// NewRouter mounts the HTTP API and the websocket endpoint.
func NewRouter(opts RouterOpts) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(internal.CORS(opts.AllowedOrigins))

	roster := Roster(opts.Hub)
	requireAuth := internal.Authenticate(opts.Tokens.Secret)

	r.Get("/healthz", Healthz(roster))
	r.Get("/events", StreamEvents(opts.EventsInterval))
	r.Get("/ws", ServeWs(opts.Hub, opts.Ws))
	r.Get("/messages/general", GeneralMessages(opts.Store))

	r.Group(func(r chi.Router) {
		if opts.AuthLimiter != nil {
			r.Use(middleware.RealIP, opts.AuthLimiter.Middleware)
		}
		r.Post("/register", Register(opts.Store))
		r.Post("/login", Login(opts.Store, opts.Tokens))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/messages/private/{username}", PrivateMessages(opts.Store))
		r.Get("/users/status", UserStatus(opts.Store))
		r.Get("/users/online", OnlineUsers(roster))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth, internal.RequireAdmin)
		r.Get("/stats", AdminStats(opts.Store))
		r.Get("/users", AdminUsers(opts.Store))
		r.Get("/messages", AdminMessages(opts.Store))
	})

	return r
}
