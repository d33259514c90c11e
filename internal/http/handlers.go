package httpapi

import (
	"context"
	"net/http"
	"strings"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/connectivity"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/remote"
	"centrovision-data/internal/service"

	"go.uber.org/zap"
)

// ModeReporter is the read side of the connectivity resolver plus a manual refresh.
type ModeReporter interface {
	Mode() connectivity.Mode
	ShellPresent() bool
	Refresh(ctx context.Context) connectivity.Mode
}

// Handlers serves the API on top of the feature modules.
type Handlers struct {
	svc    *service.Services
	modes  ModeReporter
	logger *zap.Logger
}

func NewHandlers(svc *service.Services, modes ModeReporter, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{svc: svc, modes: modes, logger: logger}
}

func bearerToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

// requirePrincipal resolves the caller before next runs: from the bearer
// token on the remote path, from the desktop session on the local path.
// The mode is read once and pinned for the whole request, so the caller and
// the handler's operations come from the same store. Every request also
// records which path served it.
func (h *Handlers) requirePrincipal(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := dualaccess.WithMode(r.Context(), h.modes.Mode())
		ctx = dualaccess.TrackPath(ctx)
		if token := bearerToken(r); token != "" {
			ctx = remote.WithAccessToken(ctx, token)
		}
		user, err := h.svc.Admin.CurrentUser(ctx)
		if err != nil {
			r = r.WithContext(ctx)
			if apperr.Is(err, apperr.KindAuthorization) {
				h.logger.Warn("Caller not resolved", zap.String("path", r.URL.Path), zap.Error(err))
				markPath(w, r)
				writeJSON(w, http.StatusUnauthorized, Result[any]{
					Code:    ResultUnauthenticated,
					Type:    "error",
					Message: apperr.Message(err),
				})
				return
			}
			h.fail(w, r, "ResolvePrincipal", err)
			return
		}
		next(w, r.WithContext(domain.WithPrincipal(ctx, user)))
	}
}

type connectivityView struct {
	Mode         connectivity.Mode `json:"mode"`
	Path         dualaccess.Path   `json:"path"`
	ShellPresent bool              `json:"shell_present"`
}

func (h *Handlers) connectivity(mode connectivity.Mode) connectivityView {
	return connectivityView{Mode: mode, Path: dualaccess.PathFor(mode), ShellPresent: h.modes.ShellPresent()}
}

func (h *Handlers) GetConnectivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.connectivity(h.modes.Mode())))
}

func (h *Handlers) RefreshConnectivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.connectivity(h.modes.Refresh(r.Context()))))
}
