package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/versehub/console/internal/domain/ordering"
)

// parseOrders reads a comma-separated list of integers. Blank entries are skipped.
func parseOrders(csv string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid order %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func runNextOrder(cmdCtx *commandContext, args []string) error {
	if len(args) > 1 {
		return errors.New("usage: console-admin next-order <comma-separated orders>")
	}
	csv := ""
	if len(args) == 1 {
		csv = args[0]
	}
	orders, err := parseOrders(csv)
	if err != nil {
		return err
	}
	return writef(cmdCtx.Out, "%d\n", ordering.NextOrder(orders))
}

func contextWithTimeout(cmdCtx *commandContext, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmdCtx.Ctx, d)
}
