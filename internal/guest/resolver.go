package guest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// ipv4Pattern matches a bare dotted-quad token. Tokens that merely contain
// an address (ports, CIDR suffixes) do not match.
var ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// ipv4CIDRPattern matches a dotted-quad token carrying a prefix-length suffix.
var ipv4CIDRPattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}/\d+$`)

// ResolveError reports that every lookup strategy failed for a guest.
type ResolveError struct {
	Guest string
	Err   error // cause of the last failed lookup; nil when lookups ran clean but reported no address
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("guest: resolve %s: %v", e.Guest, e.Err)
	}
	return fmt.Sprintf("guest: resolve %s: no IPv4 address reported", e.Guest)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Resolver discovers the guest's current IPv4 address. It performs no
// mutation; resolution failures never alter host state.
type Resolver struct {
	cfg    Config
	query  Query
	logger *slog.Logger
}

// NewResolver creates a Resolver with the given configuration.
// Config defaults are applied automatically.
func NewResolver(cfg Config, query Query, logger *slog.Logger) *Resolver {
	cfg.ApplyDefaults()
	return &Resolver{
		cfg:    cfg,
		query:  query,
		logger: logger.With("component", "guest"),
	}
}

// Resolve returns the guest's current IPv4 address as a dotted-quad string.
// The primary lookup asks the guest to report its own addresses and takes
// the first bare dotted-quad token. If that yields nothing, the fallback
// inspects the configured interface and strips the prefix length from the
// first CIDR token. When both strategies fail, a *ResolveError is returned.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	addr, err := r.fromHostname(ctx)
	if addr != "" {
		r.logger.Debug("guest address resolved",
			"guest", r.cfg.Name,
			"address", addr,
			"source", "hostname",
		)
		return addr, nil
	}
	if err != nil {
		r.logger.Debug("primary address lookup failed",
			"guest", r.cfg.Name,
			"error", err,
		)
	}

	addr, fallbackErr := r.fromInterface(ctx)
	if addr != "" {
		r.logger.Debug("guest address resolved",
			"guest", r.cfg.Name,
			"address", addr,
			"source", "interface",
			"interface", r.cfg.Interface,
		)
		return addr, nil
	}
	if fallbackErr != nil {
		r.logger.Debug("fallback address lookup failed",
			"guest", r.cfg.Name,
			"interface", r.cfg.Interface,
			"error", fallbackErr,
		)
		err = fallbackErr
	}

	return "", &ResolveError{Guest: r.cfg.Name, Err: err}
}

// fromHostname runs the guest's own address report and scans its output for
// the first bare dotted-quad token.
func (r *Resolver) fromHostname(ctx context.Context) (string, error) {
	out, err := r.query.Run(ctx, r.cfg.Name, "hostname", "-I")
	if err != nil {
		return "", err
	}
	return firstToken(out, ipv4Pattern), nil
}

// fromInterface reads the configured interface's address listing and returns
// the address part of the first CIDR token.
func (r *Resolver) fromInterface(ctx context.Context) (string, error) {
	out, err := r.query.Run(ctx, r.cfg.Name, "ip", "-4", "addr", "show", r.cfg.Interface)
	if err != nil {
		return "", err
	}
	token := firstToken(out, ipv4CIDRPattern)
	if token == "" {
		return "", nil
	}
	addr, _, _ := strings.Cut(token, "/")
	return addr, nil
}

// GuestName reports the configured guest name the resolver queries.
func (r *Resolver) GuestName() string {
	return r.cfg.Name
}

// firstToken returns the first whitespace-separated token matching pattern.
func firstToken(out []byte, pattern *regexp.Regexp) string {
	for _, token := range strings.Fields(string(out)) {
		if pattern.MatchString(token) {
			return token
		}
	}
	return ""
}
