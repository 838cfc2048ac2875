package surface

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/diagnostic-login/internal/client"
	"github.com/spec-kit/diagnostic-login/internal/domain"
	"github.com/spec-kit/diagnostic-login/internal/impersonation"
)

type staticIssuer struct{}

func (staticIssuer) DiagnosticLogin(_ context.Context, customerID int64) (*client.DiagnosticCode, error) {
	return &client.DiagnosticCode{Code: "xyz", Customer: domain.Identity{ID: customerID}}, nil
}

func TestPrinterHandsOffURL(t *testing.T) {
	var buf bytes.Buffer
	initiator := impersonation.NewInitiator(staticIssuer{}, NewPrinter(&buf), "http://localhost:3002", nil)

	out := <-initiator.Initiate(context.Background(), 7)
	require.NoError(t, out.Err)
	assert.Equal(t, "Open the customer portal: http://localhost:3002/?code=xyz\n", buf.String())
}

func TestBrowserTab(t *testing.T) {
	if os.Getenv("TEST_CHROME") == "" {
		t.Skip("TEST_CHROME not set; skipping browser test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	browser := NewBrowser(ctx, true, nil)
	defer browser.Close()

	tab, err := browser.OpenBlank()
	require.NoError(t, err)
	require.NoError(t, tab.Navigate(ctx, "about:blank#handoff"))
	require.NoError(t, tab.Close())
	require.NoError(t, tab.Close())
	assert.Error(t, tab.Navigate(ctx, "about:blank"))
}
