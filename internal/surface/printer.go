package surface

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spec-kit/diagnostic-login/internal/impersonation"
)

// Printer is a SurfaceOpener for terminals: instead of opening a tab it
// prints the address for the operator to open.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter writes to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// OpenBlank never fails.
func (p *Printer) OpenBlank() (impersonation.Surface, error) {
	return &printed{p: p}, nil
}

// Open prints rawURL right away.
func (p *Printer) Open(ctx context.Context, rawURL string) (impersonation.Surface, error) {
	s := &printed{p: p}
	if err := s.Navigate(ctx, rawURL); err != nil {
		return nil, err
	}
	return s, nil
}

type printed struct {
	p *Printer
}

func (s *printed) Navigate(_ context.Context, rawURL string) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	_, err := fmt.Fprintf(s.p.w, "Open the customer portal: %s\n", rawURL)
	return err
}

func (s *printed) Close() error { return nil }
