package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	redisadapter "github.com/versehub/console/internal/adapters/redis"
	domainauth "github.com/versehub/console/internal/domain/auth"
	"github.com/versehub/console/internal/util"
)

const sessionKeyPrefix = "session:"

type listSessionsOptions struct {
	Limit int
	JSON  bool
}

func parseListSessionsFlags(args []string) (listSessionsOptions, error) {
	var opts listSessionsOptions
	fs := flag.NewFlagSet("list-sessions", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&opts.Limit, "limit", 50, "maximum sessions to print (0 = all)")
	fs.BoolVar(&opts.JSON, "json", false, "print sessions as JSON")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Limit < 0 {
		return opts, fmt.Errorf("limit must not be negative, got %d", opts.Limit)
	}
	return opts, nil
}

func runListSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseListSessionsFlags(args)
	if err != nil {
		return err
	}
	client, err := connectRedis(cmdCtx.Logger, &cmdCtx.Config.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeInfra(nil, client); cerr != nil {
			cmdCtx.Logger.Warn("close redis failed", "error", cerr)
		}
	}()

	store := redisadapter.NewSessionStoreWithPrefix(client, sessionKeyPrefix)
	sessions, err := store.List(cmdCtx.Ctx, opts.Limit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if opts.JSON {
		return writeSessionsJSON(cmdCtx.Out, sessions)
	}
	return printSessions(cmdCtx.Out, sessions, time.Now())
}

type sessionView struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Email     string    `json:"email"`
	RoleID    int       `json:"role_id"`
	Admin     bool      `json:"admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Bearer tokens never leave the store through this command.
func viewSessions(sessions []domainauth.Session) []sessionView {
	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionView{
			ID:        s.ID,
			SubjectID: s.SubjectID,
			Email:     s.Email,
			RoleID:    int(s.RoleID),
			Admin:     s.IsAdmin(),
			ExpiresAt: s.ExpiresAt,
		})
	}
	return out
}

func writeSessionsJSON(w io.Writer, sessions []domainauth.Session) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(viewSessions(sessions))
}

func printSessions(w io.Writer, sessions []domainauth.Session, now time.Time) error {
	if len(sessions) == 0 {
		return writef(w, "no sessions found\n")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "ID\tSUBJECT\tEMAIL\tROLE\tEXPIRES IN\n"); err != nil {
		return err
	}
	for _, v := range viewSessions(sessions) {
		role := fmt.Sprintf("%d", v.RoleID)
		if v.Admin {
			role += " (admin)"
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.SubjectID, v.Email, role, util.FormatDurationHuman(v.ExpiresAt.Sub(now))); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runRevokeSession(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: console-admin revoke-session <session-id>")
	}
	client, err := connectRedis(cmdCtx.Logger, &cmdCtx.Config.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeInfra(nil, client); cerr != nil {
			cmdCtx.Logger.Warn("close redis failed", "error", cerr)
		}
	}()

	store := redisadapter.NewSessionStoreWithPrefix(client, sessionKeyPrefix)
	if _, err := store.Get(cmdCtx.Ctx, args[0]); err != nil {
		if errors.Is(err, redisadapter.ErrNotFound) {
			return fmt.Errorf("session %q not found", args[0])
		}
		return err
	}
	if err := store.Delete(cmdCtx.Ctx, args[0]); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return writef(cmdCtx.Out, "revoked session %s\n", args[0])
}
