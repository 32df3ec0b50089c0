package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/versehub/console/internal/bootstrap"
	"github.com/versehub/console/internal/service"
)

type geoLookupOptions struct {
	IP        string
	UserAgent string
	Timeout   time.Duration
}

func parseGeoLookupFlags(args []string) (geoLookupOptions, error) {
	var opts geoLookupOptions
	fs := flag.NewFlagSet("geo-lookup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.IP, "ip", "", "client address to resolve (empty resolves this host's address)")
	fs.StringVar(&opts.UserAgent, "ua", "", "user agent to classify")
	fs.DurationVar(&opts.Timeout, "timeout", 15*time.Second, "overall lookup deadline")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Timeout <= 0 {
		return opts, fmt.Errorf("timeout must be positive, got %s", opts.Timeout)
	}
	return opts, nil
}

// runGeoLookup resolves without the redis cache so every run exercises the providers.
func runGeoLookup(cmdCtx *commandContext, args []string) error {
	opts, err := parseGeoLookupFlags(args)
	if err != nil {
		return err
	}
	geoCfg := cmdCtx.Config.Geo
	geoCfg.Enabled = true
	resolver, err := bootstrap.BuildGeoResolver(geoCfg, nil, nil, cmdCtx.Logger)
	if err != nil {
		return err
	}
	if resolver == nil {
		return errors.New("geo resolver not configured")
	}

	ctx, cancel := contextWithTimeout(cmdCtx, opts.Timeout)
	defer cancel()

	rec, err := resolver.Resolve(ctx, service.GeoRequest{IP: opts.IP, UserAgent: opts.UserAgent})
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	enc := json.NewEncoder(cmdCtx.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
