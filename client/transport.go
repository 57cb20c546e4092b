package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackalope/jackalope-jackrabbit/jcr"
	"github.com/jackalope/jackalope-jackrabbit/thttp"
	"github.com/jackalope/jackalope-jackrabbit/tlog"
	"github.com/jackalope/jackalope-jackrabbit/wire"
	"go.uber.org/zap"
)

// Options configure a transport instance
type Options struct {
	// Transfer holds the low-level wire client options
	Transfer thttp.Options

	// FetchDepth is how many levels of children are fetched along with
	// every node read
	FetchDepth int

	// SkipLoginCheck disables the login verification round-trip that
	// confirms the server agrees about the bound workspace
	SkipLoginCheck bool
}

// New creates a transport for the given server URL. No network traffic
// happens before Login.
func New(server string, opts Options) Transport {
	if !strings.HasSuffix(server, "/") {
		server += "/"
	}
	return &davex{server: server, opts: opts}
}

// davex talks the Davex dialect to one repository server. One instance
// serves one login session on one logical thread.
type davex struct {
	server string // normalized with a trailing slash
	opts   Options

	conn         *thttp.Conn
	creds        jcr.SimpleCredentials
	workspace    string
	workspaceURI string // {server}{workspace}
	rootURI      string // {server}{workspace}/jcr:root
	loggedIn     bool

	descriptors map[string][]string

	// versionChecked makes the capability check on first error happen at
	// most once per instance; it is a diagnostic optimization, not a
	// correctness requirement
	versionChecked bool

	batch *wire.Batch
}

func (t *davex) Login(ctx context.Context, credentials jcr.Credentials, workspace string) (string, error) {
	if t.loggedIn {
		return "", &wire.Error{Kind: wire.KindRepository, Message: "login called twice on one transport instance"}
	}
	simple, ok := credentials.(jcr.SimpleCredentials)
	if !ok {
		return "", &wire.Error{Kind: wire.KindAuthentication, Message: fmt.Sprintf("unsupported credentials type %T", credentials)}
	}

	t.conn = thttp.NewConn(t.opts.Transfer)
	t.conn.SetBasicAuth(simple.UserID, simple.Password)
	t.creds = simple

	if workspace == "" {
		name, err := t.defaultWorkspace(ctx)
		if err != nil {
			return "", t.abandonLogin(err)
		}
		workspace = name
	}

	t.workspace = workspace
	t.workspaceURI = t.server + workspace
	t.rootURI = t.workspaceURI + wire.RootSuffix

	if !t.opts.SkipLoginCheck {
		if err := t.verifyLogin(ctx); err != nil {
			return "", t.abandonLogin(err)
		}
	}

	t.loggedIn = true
	tlog.Get(ctx).Debug("Logged into workspace", zap.String("workspace", workspace), zap.String("rootURI", t.rootURI))
	return workspace, nil
}

// abandonLogin releases the connection opened by a Login attempt that did
// not complete, leaving the instance ready for another attempt
func (t *davex) abandonLogin(err error) error {
	t.conn.Close()
	t.conn = nil
	t.workspace, t.workspaceURI, t.rootURI = "", "", ""
	return err
}

// defaultWorkspace asks the server which workspace a nameless login binds to
func (t *davex) defaultWorkspace(ctx context.Context) (string, error) {
	var ms wire.Multistatus
	err := t.execXML(ctx, request{
		method: wire.MethodPropfind,
		uri:    t.server,
		body:   wire.PropfindBody("D:workspace"),
		depth:  depth(0),
	}, &ms)
	if err != nil {
		return "", err
	}
	for _, response := range ms.Responses {
		for _, ps := range response.Propstats {
			if ps.Prop.Workspace == nil {
				continue
			}
			if name := workspaceFromURI(ps.Prop.Workspace.Href); name != "" {
				return name, nil
			}
		}
	}
	return "", &wire.Error{Kind: wire.KindRepository, Method: wire.MethodPropfind, URI: t.server,
		Message: "server did not report a default workspace"}
}

// verifyLogin confirms the server agrees about the workspace name bound to
// the session
func (t *davex) verifyLogin(ctx context.Context) error {
	var ms wire.Multistatus
	err := t.execXML(ctx, request{
		method: wire.MethodPropfind,
		uri:    t.rootURI,
		body:   wire.PropfindBody("workspaceName"),
		depth:  depth(0),
	}, &ms)
	if err != nil {
		return err
	}
	for _, response := range ms.Responses {
		for _, ps := range response.Propstats {
			if ps.Prop.WorkspaceName == "" {
				continue
			}
			if ps.Prop.WorkspaceName != t.workspace {
				return &wire.Error{Kind: wire.KindRepository, Method: wire.MethodPropfind, URI: t.rootURI,
					Message: fmt.Sprintf("expected workspace %q, server reports %q", t.workspace, ps.Prop.WorkspaceName)}
			}
			return nil
		}
	}
	return &wire.Error{Kind: wire.KindRepository, Method: wire.MethodPropfind, URI: t.rootURI,
		Message: "server did not report a workspace name"}
}

func (t *davex) Logout(ctx context.Context) error {
	if t.conn != nil {
		t.conn.Close()
	}
	return nil
}

func (t *davex) RepositoryDescriptors(ctx context.Context) (map[string][]string, error) {
	if t.descriptors != nil {
		return t.descriptors, nil
	}

	var report wire.DescriptorsReport
	err := t.execXML(ctx, request{
		method: wire.MethodReport,
		uri:    t.server,
		body:   wire.ReportRepositoryDescriptors(),
	}, &report)
	if err != nil {
		return nil, err
	}

	descriptors := map[string][]string{}
	for _, d := range report.Descriptors {
		descriptors[d.Key] = d.Values
	}

	if version := firstValue(descriptors[wire.DescriptorVersion]); version != "" &&
		wire.CompareVersions(version, wire.MinVersion) < 0 {
		return nil, &wire.Error{Kind: wire.KindUnsupported, Method: wire.MethodReport, URI: t.server,
			Message: fmt.Sprintf("server version %s is older than the minimum supported %s", version, wire.MinVersion)}
	}

	t.descriptors = descriptors
	return descriptors, nil
}

func (t *davex) AccessibleWorkspaceNames(ctx context.Context) ([]string, error) {
	var ms wire.Multistatus
	err := t.execXML(ctx, request{
		method: wire.MethodPropfind,
		uri:    t.server,
		body:   wire.PropfindBody("D:workspace"),
		depth:  depth(1),
	}, &ms)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var names []string
	for _, response := range ms.Responses {
		for _, ps := range response.Propstats {
			if ps.Prop.Workspace == nil {
				continue
			}
			name := workspaceFromURI(ps.Prop.Workspace.Href)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

// fullUnicode reports whether string values may carry supplemental-plane
// codepoints; older servers corrupt them silently
func (t *davex) fullUnicode(ctx context.Context) bool {
	descriptors, err := t.RepositoryDescriptors(ctx)
	if err != nil {
		tlog.Get(ctx).Debug("Cannot determine server version, assuming restricted Unicode", zap.Error(err))
		return false
	}
	version := firstValue(descriptors[wire.DescriptorVersion])
	return version != "" && wire.CompareVersions(version, wire.MinVersionFullUnicode) >= 0
}

// workspaceFromURI extracts the workspace name from a workspace href like
// {server}{workspace}/jcr:root or {server}{workspace}/
func workspaceFromURI(uri string) string {
	uri = strings.TrimSuffix(uri, "/")
	uri = strings.TrimSuffix(uri, wire.RootSuffix)
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		return uri[i+1:]
	}
	return ""
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func depth(d int) *int {
	return &d
}
