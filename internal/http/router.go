package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Rooms      *RoomHandler
	Bookings   *BookingHandler
	Users      *UserHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Rooms != nil {
		mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rooms.List(w, r)
			case http.MethodPost:
				cfg.Rooms.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/rooms/search", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Rooms.Search(w, r)
		})
		mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/rooms/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithRoomID(r.Context(), id)
			r = r.WithContext(ctx)
			switch r.Method {
			case http.MethodGet:
				cfg.Rooms.Get(w, r)
			case http.MethodPut:
				cfg.Rooms.Update(w, r)
			case http.MethodDelete:
				cfg.Rooms.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Bookings != nil {
		mux.HandleFunc("/bookings", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Bookings.List(w, r)
			case http.MethodPost:
				cfg.Bookings.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/bookings/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/bookings/")
			switch {
			case rest == "":
				http.NotFound(w, r)
			case strings.HasPrefix(rest, "room/"):
				roomID := strings.TrimPrefix(rest, "room/")
				if roomID == "" || strings.Contains(roomID, "/") {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				r = r.WithContext(ContextWithRoomID(r.Context(), roomID))
				cfg.Bookings.ListByRoom(w, r)
			case strings.HasPrefix(rest, "user/"):
				userID := strings.TrimPrefix(rest, "user/")
				if userID == "" || strings.Contains(userID, "/") {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				r = r.WithContext(ContextWithUserID(r.Context(), userID))
				cfg.Bookings.ListByUser(w, r)
			case strings.HasSuffix(rest, "/cancel"):
				id := strings.TrimSuffix(rest, "/cancel")
				if id == "" || strings.Contains(id, "/") {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				r = r.WithContext(ContextWithBookingID(r.Context(), id))
				cfg.Bookings.Cancel(w, r)
			case strings.Contains(rest, "/"):
				http.NotFound(w, r)
			default:
				r = r.WithContext(ContextWithBookingID(r.Context(), rest))
				switch r.Method {
				case http.MethodGet:
					cfg.Bookings.Get(w, r)
				case http.MethodPut:
					cfg.Bookings.Update(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut)
				}
			}
		})
	}

	if cfg.Users != nil {
		mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Users.List(w, r)
			case http.MethodPost:
				cfg.Users.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/users/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithUserID(r.Context(), id)
			r = r.WithContext(ctx)
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Users.Get(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
