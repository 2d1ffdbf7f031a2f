package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/johndosdos/hybridchat/internal/auth"
	"github.com/johndosdos/hybridchat/internal/database"
	"github.com/johndosdos/hybridchat/internal/model"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Username  string `json:"username" validate:"required,max=50,excludesall=:"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenOpts configures the JWTs minted at login.
type TokenOpts struct {
	Issuer string
	Secret string
	TTL    time.Duration
}

// Register handles user account creation.
func Register(db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, validationMessage(err, "All fields are required"))
			return
		}

		exists, err := db.UserExists(ctx, req.Email, req.Username)
		if err != nil {
			slog.ErrorContext(ctx, "failed to check existing user", "error", err)
			writeError(w, http.StatusInternalServerError, "Registration failed")
			return
		}
		if exists {
			writeError(w, http.StatusBadRequest, "Email or username already exists")
			return
		}

		hashedPw, err := auth.HashPassword(req.Password)
		if err != nil {
			slog.ErrorContext(ctx, "argon2id hash creation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		user, err := db.CreateUser(ctx, database.CreateUserParams{
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Username:       req.Username,
			Email:          req.Email,
			HashedPassword: hashedPw,
		})
		switch {
		case errors.Is(err, database.ErrDuplicateUser):
			// Lost a race with a concurrent registration.
			writeError(w, http.StatusBadRequest, "Email or username already exists")
			return
		case err != nil:
			slog.ErrorContext(ctx, "failed to create user", "error", err)
			writeError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		slog.InfoContext(ctx, "user registered", "username", user.Username)
		writeJSON(w, http.StatusOK, messageResponse{Message: "Registration successful"})
	}
}

// Login verifies credentials and returns a bearer token.
func Login(db Store, opts TokenOpts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		user, err := db.GetUserWithPasswordByEmail(ctx, req.Email)
		switch {
		case errors.Is(err, database.ErrNotFound):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		case err != nil:
			slog.ErrorContext(ctx, "failed to retrieve user", "error", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}

		ok, err := auth.CheckPasswordHash(req.Password, user.HashedPassword)
		if err != nil {
			slog.ErrorContext(ctx, "cannot verify password, hash may be corrupted",
				"error", err,
				"username", user.Username)
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		if err := db.SetUserOnline(ctx, user.Username, true); err != nil {
			slog.WarnContext(ctx, "failed to mark user online", "error", err, "username", user.Username)
		}

		token, err := auth.MakeJWT(auth.Identity{
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
			IsAdmin:  user.IsAdmin,
		}, opts.Issuer, opts.Secret, opts.TTL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to sign token", "error", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}

		slog.InfoContext(ctx, "user logged in", "username", user.Username)
		writeJSON(w, http.StatusOK, model.LoginResponse{Token: token, User: model.NewUser(user.User)})
	}
}

// validationMessage reports missing fields with fallback and anything else by
// naming the first offending field.
func validationMessage(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fallback
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return fallback
		}
	}
	return "Invalid " + verrs[0].Field()
}
