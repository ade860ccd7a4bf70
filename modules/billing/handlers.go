package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	billingpkg "github.com/dmitrymomot/billingsync/pkg/billing"
	"github.com/dmitrymomot/billingsync/pkg/logger"
)

const (
	msgUnexpected          = "an unexpected error occurred"
	msgProviderUnavailable = "billing provider unavailable"
)

type userPayload struct {
	ID           string `json:"id" validate:"required,max=255"`
	Email        string `json:"email" validate:"omitempty,email"`
	UserMetadata struct {
		Name string `json:"name" validate:"max=255"`
	} `json:"user_metadata"`
}

func (u userPayload) toUser() billingpkg.User {
	return billingpkg.User{ID: u.ID, Email: u.Email, DisplayName: u.UserMetadata.Name}
}

type checkoutRequest struct {
	User      userPayload `json:"user"`
	LookupKey string      `json:"lookup_key" validate:"required,max=255"`
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

type portalRequest struct {
	User userPayload `json:"user"`
}

type portalResponse struct {
	PortalURL string `json:"portalUrl"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.checkout.CreateCheckoutSession(r.Context(), req.User.toUser(), req.LookupKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{CheckoutURL: session.URL})
}

func (s *Service) createPortalSession(w http.ResponseWriter, r *http.Request) {
	var req portalRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.portal.CreatePortalSession(r.Context(), req.User.toUser())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, portalResponse{PortalURL: session.URL})
}

// webhook acknowledges every delivery with an empty 200. The only exception
// is a failed signature check when a verifier is configured.
func (s *Service) webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		s.events.Malformed(ctx, err)
		w.WriteHeader(http.StatusOK)
		return
	}

	if s.verifier != nil {
		if err := s.verifier.Verify(payload, r.Header.Get(billingpkg.SignatureHeader)); err != nil {
			s.log.WarnContext(ctx, "webhook signature rejected", logger.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	ev, err := billingpkg.ParseEvent(payload)
	if err != nil {
		s.events.Malformed(ctx, err)
		w.WriteHeader(http.StatusOK)
		return
	}

	s.events.Dispatch(ctx, ev)
	w.WriteHeader(http.StatusOK)
}

func (s *Service) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes)).Decode(v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}

// writeError maps provider outages to 502 and everything else to 400. The
// response never carries the underlying error.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusBadRequest, msgUnexpected
	if errors.Is(err, billingpkg.ErrProviderUnavailable) {
		status, msg = http.StatusBadGateway, msgProviderUnavailable
	}
	s.log.ErrorContext(r.Context(), "billing request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		logger.Error(err),
	)
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
