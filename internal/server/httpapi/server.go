// Package httpapi exposes the REST and websocket surface of the sync server.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/yaxxsin/task-management-prod-sub001/internal/errs"
	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
	"github.com/yaxxsin/task-management-prod-sub001/internal/service"
)

const maxBodyBytes = 4 << 20

// Server wires services into HTTP handlers.
type Server struct {
	auth    service.AuthService
	storage service.StorageService
	share   service.ShareService
	ws      http.Handler
	signKey []byte
	log     *zap.Logger
}

// New constructs a server with injected services.
func New(auth service.AuthService, storage service.StorageService, share service.ShareService, ws http.Handler, signKey []byte, log *zap.Logger) *Server {
	return &Server{auth: auth, storage: storage, share: share, ws: ws, signKey: signKey, log: log}
}

// Handler builds the route table with logging and recovery middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.HandleFunc("GET /api/storage", s.requireAuth(s.handleStorageAll))
	mux.HandleFunc("GET /api/storage/{key}", s.optionalAuth(s.handleStorageGet))
	mux.HandleFunc("POST /api/storage/{key}", s.optionalAuth(s.handleStorageSet))

	mux.HandleFunc("POST /api/invite", s.requireAuth(s.handleInvite))
	mux.HandleFunc("GET /api/invitations", s.requireAuth(s.handleInvitations))
	mux.HandleFunc("POST /api/invitations/{id}/accept", s.requireAuth(s.handleAccept))
	mux.HandleFunc("GET /api/resource/members", s.requireAuth(s.handleMembers))
	mux.HandleFunc("POST /api/shared/leave", s.requireAuth(s.handleLeave))
	mux.HandleFunc("POST /api/shared/propagate", s.requireAuth(s.handlePropagate))
	mux.HandleFunc("GET /api/shared", s.requireAuth(s.handleSharedView))

	if s.ws != nil {
		mux.Handle("GET /api/ws", s.ws)
	}

	return Recover(s.log)(Logging(s.log)(mux))
}

// --- auth plumbing ---

// identityFromRequest verifies the bearer JWT and returns the caller.
func (s *Server) identityFromRequest(r *http.Request) (service.Identity, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return service.Identity{}, errs.ErrUnauthorized
	}
	tok := strings.TrimSpace(h[7:])

	var claims service.Claims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return service.Identity{}, errs.ErrUnauthorized
	}
	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return service.Identity{}, errs.ErrUnauthorized
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return service.Identity{}, errs.ErrUnauthorized
	}
	return service.Identity{ID: id, Email: claims.Email}, nil
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := s.identityFromRequest(r)
		if err != nil {
			http.Error(w, "no auth", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), ident)))
	}
}

// optionalAuth attaches the identity when present; anonymous callers fall
// back to the legacy/global key namespace.
func (s *Server) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ident, err := s.identityFromRequest(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), ident))
		}
		next(w, r)
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- identity handlers ---

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "empty email/password", http.StatusBadRequest)
		return
	}
	userID, err := s.auth.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			http.Error(w, "email taken", http.StatusConflict)
			return
		}
		s.internal(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"userId": userID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        userInfo  `json:"user"`
}

type userInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	tok, u, err := s.auth.LoginWithIP(r.Context(), req.Email, req.Password, remoteIP(r))
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUnauthorized):
			http.Error(w, "bad credentials", http.StatusUnauthorized)
		case errors.Is(err, errs.ErrRateLimited):
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		default:
			s.internal(w, "login", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.ExpiresAt,
		User: userInfo{
			ID:          u.ID.String(),
			Email:       u.Email,
			DisplayName: u.DisplayName,
			AvatarURL:   u.AvatarURL,
		},
	})
}

// --- storage handlers ---

type storageResponse struct {
	Key      string          `json:"key"`
	Document json.RawMessage `json:"document"`
}

func (s *Server) handleStorageGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	callerID := uuid.Nil
	if ident, ok := IdentityFromCtx(r.Context()); ok {
		callerID = ident.ID
	}
	doc, err := s.storage.Load(r.Context(), callerID, key)
	if err != nil {
		s.internal(w, "storage get", err)
		return
	}
	if doc == nil {
		doc = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, storageResponse{Key: key, Document: doc})
}

func (s *Server) handleStorageSet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	callerID := uuid.Nil
	if ident, ok := IdentityFromCtx(r.Context()); ok {
		callerID = ident.ID
	}
	if err := s.storage.Save(r.Context(), callerID, key, body); err != nil {
		if strings.HasPrefix(err.Error(), "validation:") {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.internal(w, "storage set", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStorageAll(w http.ResponseWriter, r *http.Request) {
	blobs, err := s.storage.All(r.Context())
	if err != nil {
		s.internal(w, "storage all", err)
		return
	}
	out := make([]storageResponse, 0, len(blobs))
	for _, b := range blobs {
		out = append(out, storageResponse{Key: b.Key, Document: b.Document})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- sharing handlers ---

type grantInfo struct {
	ID           string    `json:"id"`
	ResourceType string    `json:"resourceType"`
	ResourceID   string    `json:"resourceId"`
	OwnerID      string    `json:"ownerId"`
	InvitedEmail string    `json:"invitedEmail"`
	Status       string    `json:"status"`
	Permission   string    `json:"permission"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toGrantInfo(g model.ShareGrant) grantInfo {
	return grantInfo{
		ID:           g.ID.String(),
		ResourceType: g.ResourceType,
		ResourceID:   g.ResourceID,
		OwnerID:      g.OwnerID.String(),
		InvitedEmail: g.InvitedEmail,
		Status:       g.Status,
		Permission:   g.Permission,
		CreatedAt:    g.CreatedAt,
	}
}

type inviteRequest struct {
	Email        string `json:"email"`
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
	Permission   string `json:"permission"`
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFromCtx(r.Context())
	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	g, err := s.share.Invite(r.Context(), ident, req.Email, req.ResourceType, req.ResourceID, req.Permission)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrGrantConflict):
			http.Error(w, "already invited", http.StatusConflict)
		case strings.HasPrefix(err.Error(), "validation:"):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			s.internal(w, "invite", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, toGrantInfo(*g))
}

func (s *Server) handleInvitations(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFromCtx(r.Context())
	gs, err := s.share.Invitations(r.Context(), ident.Email)
	if err != nil {
		s.internal(w, "invitations", err)
		return
	}
	out := make([]grantInfo, 0, len(gs))
	for _, g := range gs {
		out = append(out, toGrantInfo(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFromCtx(r.Context())
	grantID, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	if err := s.share.Accept(r.Context(), grantID, ident.Email); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.internal(w, "accept", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	resourceType := r.URL.Query().Get("resourceType")
	resourceID := r.URL.Query().Get("resourceId")
	if resourceType == "" || resourceID == "" {
		http.Error(w, "resourceType/resourceId required", http.StatusBadRequest)
		return
	}
	members, err := s.share.Members(r.Context(), resourceType, resourceID)
	if err != nil {
		s.internal(w, "members", err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

type leaveRequest struct {
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFromCtx(r.Context())
	var req leaveRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := s.share.Leave(r.Context(), ident.Email, req.ResourceType, req.ResourceID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.internal(w, "leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type propagateRequest struct {
	OwnerID string     `json:"ownerId"`
	Type    string     `json:"type"`
	Data    model.Item `json:"data"`
}

func (s *Server) handlePropagate(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFromCtx(r.Context())
	var req propagateRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	ownerID, err := uuid.FromString(req.OwnerID)
	if err != nil {
		http.Error(w, "bad ownerId", http.StatusBadRequest)
		return
	}
	if err := s.share.Propagate(r.Context(), ident, ownerID, req.Type, req.Data); err != nil {
		switch {
		case errors.Is(err, errs.ErrUnauthorized):
			http.Error(w, "not a collaborator", http.StatusForbidden)
		case errors.Is(err, errs.ErrUnknownItemType):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case strings.HasPrefix(err.Error(), "validation:"):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			s.internal(w, "propagate", err)
		}
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSharedView(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFromCtx(r.Context())
	view, err := s.share.View(r.Context(), ident.Email)
	if err != nil {
		s.internal(w, "shared view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// --- helpers ---

func decodeJSON(r *http.Request, v any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) internal(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, zap.Error(err))
	http.Error(w, "internal", http.StatusInternalServerError)
}
