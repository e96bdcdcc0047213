// Package cli holds the bootstrap and output helpers shared by the binaries.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	fhirseed "github.com/goliatone/go-fhir-seed"
	"github.com/goliatone/go-fhir-seed/adapters/gologger"
	"github.com/goliatone/go-fhir-seed/core"
)

// Runtime is one process worth of wiring: resolved config, logger, service
// and the command facade.
type Runtime struct {
	Config  fhirseed.Config
	Logger  *gologger.Logger
	Service *fhirseed.Service
	Facade  *fhirseed.Facade
}

// Bootstrap loads configuration with runtime overrides on top and builds the
// service. Logs go to logOut.
func Bootstrap(ctx context.Context, runtime fhirseed.Config, logOut io.Writer, opts ...fhirseed.Option) (*Runtime, error) {
	cfg, err := fhirseed.LoadConfig(ctx, runtime)
	if err != nil {
		return nil, err
	}
	logger, err := gologger.NewLogrus(logOut, cfg.LogLevel)
	if err != nil {
		return nil, core.BadInputError("cli: invalid log level "+cfg.LogLevel, nil)
	}
	opts = append([]fhirseed.Option{fhirseed.WithLoggerProvider(logger)}, opts...)
	svc, err := fhirseed.New(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	facade, err := fhirseed.NewFacade(svc)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	return &Runtime{Config: cfg, Logger: logger, Service: svc, Facade: facade}, nil
}

func (r *Runtime) Close() {
	if r == nil {
		return
	}
	r.Facade.Close()
	if err := r.Service.Close(); err != nil && r.Logger != nil {
		r.Logger.Warn("close ledger failed", "error", err.Error())
	}
}

// PrintSection writes a banner followed by value as indented JSON.
func PrintSection(w io.Writer, title string, value any) error {
	if _, err := fmt.Fprintf(w, "\n****** %s *************\n", title); err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}

// PrintDiagnostic writes err for an operator. Flow failures include the
// request and the raw response body returned by the remote service.
func PrintDiagnostic(w io.Writer, err error) {
	if err == nil {
		return
	}
	var opErr *core.OperationError
	if errors.As(err, &opErr) {
		fmt.Fprintln(w, "Problem sending request to endpoint")
		if opErr.Method != "" || opErr.URL != "" {
			fmt.Fprintf(w, "  request: %s %s\n", opErr.Method, opErr.URL)
		}
		if opErr.StatusCode > 0 {
			fmt.Fprintf(w, "  status: %d\n", opErr.StatusCode)
		}
		if body := strings.TrimSpace(opErr.Body); body != "" {
			fmt.Fprintln(w, body)
		}
	}
	mapped := core.MapError(err)
	fmt.Fprintf(w, "error [%s]: %s\n", mapped.TextCode, err.Error())
}
