// Package impersonation starts diagnostic sessions from the intranet: it
// requests a one-time code for a customer and hands a browsing surface to the
// customer portal with that code attached.
package impersonation

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/client"
	"github.com/spec-kit/diagnostic-login/internal/domain"
)

// Surface is an open browsing surface such as a browser tab.
type Surface interface {
	Navigate(ctx context.Context, rawURL string) error
	Close() error
}

// SurfaceOpener creates surfaces. OpenBlank must not block on network work:
// it runs on the caller's goroutine before the code is requested.
type SurfaceOpener interface {
	OpenBlank() (Surface, error)
	Open(ctx context.Context, rawURL string) (Surface, error)
}

// CodeIssuer mints one-time diagnostic codes.
type CodeIssuer interface {
	DiagnosticLogin(ctx context.Context, customerID int64) (*client.DiagnosticCode, error)
}

// Outcome reports how an initiation ended. On success Surface shows URL;
// Surface may be nil when no surface could be opened, in which case Err
// explains why and URL can still be handed to the user.
type Outcome struct {
	CustomerID int64
	Customer   domain.Identity
	URL        string
	Surface    Surface
	Err        error
}

// Initiator runs the staff side of a diagnostic login.
type Initiator struct {
	issuer         CodeIssuer
	opener         SurfaceOpener
	customerAppURL string
	logger         *zap.Logger
}

// NewInitiator builds an initiator redirecting to customerAppURL.
func NewInitiator(issuer CodeIssuer, opener SurfaceOpener, customerAppURL string, logger *zap.Logger) *Initiator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Initiator{
		issuer:         issuer,
		opener:         opener,
		customerAppURL: customerAppURL,
		logger:         logger,
	}
}

// Initiate opens a blank surface before returning, then requests the code in
// the background. The surface is navigated to the customer portal on success
// and closed on failure. Exactly one Outcome is sent on the returned channel.
// There is no retry; call Initiate again.
func (i *Initiator) Initiate(ctx context.Context, customerID int64) <-chan Outcome {
	out := make(chan Outcome, 1)

	surface, err := i.opener.OpenBlank()
	if err != nil {
		i.logger.Warn("could not open blank surface", zap.Error(err))
		surface = nil
	}

	go func() {
		out <- i.complete(ctx, customerID, surface)
	}()
	return out
}

func (i *Initiator) complete(ctx context.Context, customerID int64, surface Surface) Outcome {
	result := Outcome{CustomerID: customerID}

	code, err := i.issuer.DiagnosticLogin(ctx, customerID)
	if err != nil {
		i.release(surface)
		result.Err = fmt.Errorf("diagnostic login for customer %d: %w", customerID, err)
		return result
	}
	result.Customer = code.Customer

	target, err := RedirectURL(i.customerAppURL, code.Code)
	if err != nil {
		i.release(surface)
		result.Err = err
		return result
	}
	result.URL = target

	if surface != nil {
		err := surface.Navigate(ctx, target)
		if err == nil {
			result.Surface = surface
			i.logger.Info("diagnostic session handed off", zap.Int64("customer_id", customerID))
			return result
		}
		i.logger.Warn("navigating pre-opened surface failed", zap.Error(err))
		i.release(surface)
	}

	opened, err := i.opener.Open(ctx, target)
	if err != nil {
		result.Err = fmt.Errorf("open customer portal: %w", err)
		return result
	}
	result.Surface = opened
	i.logger.Info("diagnostic session handed off", zap.Int64("customer_id", customerID), zap.Bool("fallback", true))
	return result
}

func (i *Initiator) release(surface Surface) {
	if surface == nil {
		return
	}
	if err := surface.Close(); err != nil {
		i.logger.Debug("closing surface failed", zap.Error(err))
	}
}

// RedirectURL builds <customerAppURL>/?code=<code>.
func RedirectURL(customerAppURL, code string) (string, error) {
	u, err := url.Parse(customerAppURL)
	if err != nil {
		return "", fmt.Errorf("customer app url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("customer app url %q: scheme and host required", customerAppURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = url.Values{"code": {code}}.Encode()
	u.Fragment = ""
	return u.String(), nil
}
