package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kansalharshit22/solace-project/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserIDKey is the key type for storing the authenticated user id in context
type UserIDKey string

const userIDKey UserIDKey = "userID"

// tokenClaims is the payload of the bearer tokens handed out at login.
type tokenClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

func (s *server) issueToken(userID int) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	})
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// parseToken validates tokenStr and returns the user id it carries.
func (s *server) parseToken(tokenStr string) (int, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.UserID <= 0 {
		return 0, errors.New("invalid token claims")
	}
	return claims.UserID, nil
}

// userIDFromRequest reads the token from the Authorization header, falling
// back to the ?token= query parameter browsers use for websockets.
func (s *server) userIDFromRequest(r *http.Request) (int, bool) {
	tokenStr := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenStr = strings.TrimPrefix(auth, "Bearer ")
	} else {
		tokenStr = r.URL.Query().Get("token")
	}
	if tokenStr == "" {
		return 0, false
	}
	id, err := s.parseToken(tokenStr)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *server) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, err := s.parseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

type registerRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Year        *string  `json:"year"`
	Department  *string  `json:"department"`
	Bio         *string  `json:"bio"`
	Personality *string  `json:"personality"`
	Tags        []string `json:"tags"`
	Interests   []string `json:"interests"`
}

type authResponse struct {
	Message string           `json:"message"`
	User    store.PublicUser `json:"user"`
	Token   string           `json:"token"`
}

func (s *server) registerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		if req.Name == "" || req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "name, email, password are required")
			return
		}

		email := strings.ToLower(req.Email)
		if !s.emailAllowed(email) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Only %s email addresses are allowed", s.cfg.AllowedEmailDomain))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.log.Error("hash password", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "hash error")
			return
		}

		u := store.User{
			Name:         req.Name,
			Email:        email,
			PasswordHash: string(hash),
			Year:         nullString(req.Year),
			Department:   nullString(req.Department),
			Bio:          nullString(req.Bio),
			Personality:  nullString(req.Personality),
			Tags:         req.Tags,
			Interests:    req.Interests,
		}
		if err := s.store.CreateUser(r.Context(), &u); err != nil {
			if errors.Is(err, store.ErrEmailExists) {
				writeError(w, http.StatusConflict, "email already registered")
				return
			}
			s.log.Error("create user", zap.String("email", email), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "register error")
			return
		}

		token, err := s.issueToken(u.ID)
		if err != nil {
			s.log.Error("sign token", zap.Int("user_id", u.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "token error")
			return
		}

		s.log.Info("user registered", zap.Int("user_id", u.ID))
		s.feed.refresh()
		writeJSON(w, http.StatusCreated, authResponse{Message: "registered", User: u.Public(), Token: token})
	}
}

func (s *server) emailAllowed(email string) bool {
	if s.cfg.AllowedEmailDomain == "" {
		return true
	}
	return strings.HasSuffix(email, "@"+strings.ToLower(s.cfg.AllowedEmailDomain))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))

		u, err := s.store.UserByEmail(r.Context(), email)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		} else if err != nil {
			s.log.Error("query user", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db error")
			return
		}

		// Compare the provided password with the stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := s.issueToken(u.ID)
		if err != nil {
			s.log.Error("sign token", zap.Int("user_id", u.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "token error")
			return
		}
		writeJSON(w, http.StatusOK, authResponse{Message: "ok", User: u.Public(), Token: token})
	}
}
