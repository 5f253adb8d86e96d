package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/config"
	"github.com/prn-tf/lendery/internal/domain"
	"github.com/prn-tf/lendery/internal/metrics"
	"github.com/prn-tf/lendery/internal/service"
)

// UserHandler serves the /user_api endpoints.
type UserHandler struct {
	users    *service.UserService
	sessions *service.SessionService
	auth     config.AuthConfig
	logger   zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, sessions *service.SessionService, auth config.AuthConfig, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		sessions: sessions,
		auth:     auth,
		logger:   logger.With().Str("handler", "user").Logger(),
	}
}

// Routes mounts the user endpoints on a chi router.
func (h *UserHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.With(RequireAuth).Post("/logout", h.Logout)
	r.Get("/current_user", h.CurrentUser)
	r.With(RequireAuth).Patch("/change_duration/{userID}", h.ChangeDuration)
	return r
}

// userResponse is the user summary returned by registration, login and
// current_user.
type userResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Duration int    `json:"duration"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Name:     u.FirstName,
		Email:    u.Email,
		Duration: u.LendDuration,
	}
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Register creates a new user account and logs it in immediately.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.users.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.startSession(w, r, out.User.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(out.User))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and establishes a session.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.startSession(w, r, user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, newUserResponse(user))
}

// Logout ends the current session.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.auth.CookieName); err == nil {
		if err := h.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.auth.CookieSecure,
	})

	writeMessage(w, http.StatusOK, "logged out")
}

// CurrentUser returns the authenticated user's summary.
func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

type changeDurationRequest struct {
	Duration int `json:"duration"`
}

// ChangeDuration updates the caller's lending duration. Users may only
// change their own duration.
func (h *UserHandler) ChangeDuration(w http.ResponseWriter, r *http.Request) {
	callerID, _ := userIDFrom(r.Context())

	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	if targetID != callerID {
		writeMessage(w, http.StatusUnauthorized, "can only change your own duration")
		return
	}

	var req changeDurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.ChangeDuration(r.Context(), service.ChangeDurationInput{
		UserID: callerID,
		Days:   req.Duration,
	}); err != nil {
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "duration updated")
}

// startSession creates a session for the user and sets the cookie.
func (h *UserHandler) startSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	token, err := h.sessions.Create(r.Context(), userID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	metrics.SessionStarted()
	return nil
}
