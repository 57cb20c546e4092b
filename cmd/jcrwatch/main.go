package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackalope/jackalope-jackrabbit/client"
	"github.com/jackalope/jackalope-jackrabbit/jcr"
	"github.com/jackalope/jackalope-jackrabbit/retry"
	"github.com/jackalope/jackalope-jackrabbit/run"
	"github.com/jackalope/jackalope-jackrabbit/thttp"
	"github.com/jackalope/jackalope-jackrabbit/tlog"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// jcrwatch tails the change journal of a content repository workspace and
// logs every event.
func main() {
	var server, workspace, user, password string
	var since, poll time.Duration
	var http11 bool
	pflag.StringVar(&server, "server", "http://localhost:8080/server/", "Repository server URL")
	pflag.StringVar(&workspace, "workspace", "", "Workspace name (default: server's default workspace)")
	pflag.StringVar(&user, "user", "admin", "User id")
	pflag.StringVar(&password, "password", "admin", "Password")
	pflag.DurationVar(&since, "since", time.Hour, "How far back to start reading the journal")
	pflag.DurationVar(&poll, "poll", 5*time.Second, "Journal poll interval; 0 = print one batch and exit")
	pflag.BoolVar(&http11, "http11", false, "Disable HTTP/2 (needed behind some proxies)")
	pflag.Parse()

	run.Tool(func(ctx context.Context) error {
		t := client.New(server, client.Options{Transfer: thttp.Options{ForceHTTP11: http11}})
		ws, err := t.Login(ctx, jcr.SimpleCredentials{UserID: user, Password: password}, workspace)
		if err != nil {
			return err
		}
		defer t.Logout(ctx) //nolint:errcheck
		tlog.Get(ctx).Info("Watching journal", zap.String("workspace", ws))

		after := time.Now().Add(-since)
		for {
			after, err = printEvents(ctx, t, after)
			if err != nil {
				return err
			}
			if poll <= 0 {
				return nil
			}
			if err := retry.Sleep(ctx, poll); err != nil {
				return err
			}
		}
	})
}

// printEvents drains one journal view and returns the watermark to resume
// from
func printEvents(ctx context.Context, t client.Transport, after time.Time) (time.Time, error) {
	buffer, err := t.Events(ctx, after, nil)
	if err != nil {
		return after, err
	}
	for {
		event, err := buffer.Next(ctx)
		if err != nil {
			return after, err
		}
		if event == nil {
			return after, nil
		}
		if event.Date.After(after) {
			after = event.Date
		}
		fmt.Printf("%s %-16s %-10s %s\n",
			event.Date.Format(time.RFC3339), event.Type, event.UserID, event.Path)
	}
}
