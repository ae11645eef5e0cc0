// Package cli implements the hrctl commands on top of the session store.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hrdesk/hr-auth/internal/client/api"
	"github.com/hrdesk/hr-auth/internal/client/guard"
	"github.com/hrdesk/hr-auth/internal/client/session"
)

var errUsage = errors.New("usage")

// App runs one hrctl command against a session store.
type App struct {
	client *api.Client
	store  *session.Store
	prompt Prompter
	out    io.Writer
}

func New(client *api.Client, store *session.Store, prompt Prompter, out io.Writer) *App {
	return &App{client: client, store: store, prompt: prompt, out: out}
}

// Run dispatches args[0] to a command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		PrintUsage(a.out)
		return errUsage
	}

	switch args[0] {
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx)
	case "logout":
		return a.logout(ctx)
	case "status":
		return a.status()
	case "whoami":
		return a.whoami(ctx)
	case "open":
		return a.open(args[1:])
	case "get":
		return a.get(ctx, args[1:])
	case "wait":
		return a.wait(ctx)
	default:
		PrintUsage(a.out)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// PrintUsage writes the command summary.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: hrctl [flags] <command> [args]

Commands:
  register        create an account and sign in
  login           sign in
  logout          end the session
  status          show the local session state
  whoami          fetch the profile from the server
  open <view>     check whether a dashboard view may be shown
  get <path>      GET a protected API path with the session token
  wait            block until the session ends
`)
}

func (a *App) register(ctx context.Context) error {
	if a.store.IsAuthenticated() {
		fmt.Fprintln(a.out, "Already signed in; redirecting to dashboard.")
		return nil
	}
	name, err := a.prompt.ReadLine("Name: ")
	if err != nil {
		return err
	}
	email, err := a.prompt.ReadLine("Email: ")
	if err != nil {
		return err
	}
	password, err := a.prompt.ReadPassword("Password: ")
	if err != nil {
		return err
	}

	if err := a.store.Register(ctx, name, email, password); err != nil {
		return errors.New(a.store.Err())
	}
	fmt.Fprintf(a.out, "Registered and signed in as %s.\n", a.store.Profile().Email)
	return nil
}

func (a *App) login(ctx context.Context) error {
	if a.store.IsAuthenticated() {
		fmt.Fprintln(a.out, "Already signed in; redirecting to dashboard.")
		return nil
	}
	email, err := a.prompt.ReadLine("Email: ")
	if err != nil {
		return err
	}
	password, err := a.prompt.ReadPassword("Password: ")
	if err != nil {
		return err
	}

	if err := a.store.Login(ctx, email, password); err != nil {
		return errors.New(a.store.Err())
	}
	fmt.Fprintf(a.out, "Signed in as %s.\n", a.store.Profile().Email)
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.store.LogoutContext(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *App) status() error {
	p := a.store.Profile()
	if p == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(a.out, "Signed in as %s <%s> (%s).\n", p.Name, p.Email, p.Role)
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	p, err := a.store.Me(ctx)
	if err != nil {
		if !a.store.IsAuthenticated() {
			return errors.New("session is no longer valid, please log in again")
		}
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> role=%s id=%s\n", p.Name, p.Email, p.Role, p.ID)
	return nil
}

func (a *App) open(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: open <view>", errUsage)
	}
	v, ok := guard.Parse(args[0])
	if !ok {
		return fmt.Errorf("unknown view %q", args[0])
	}

	d := guard.Check(v, a.store.IsAuthenticated())
	if d.Allow {
		fmt.Fprintf(a.out, "%s: allowed\n", v)
		return nil
	}
	fmt.Fprintf(a.out, "%s: redirect to %s\n", v, d.Redirect)
	return nil
}

func (a *App) get(ctx context.Context, args []string) error {
	if len(args) != 1 || !strings.HasPrefix(args[0], "/") {
		return fmt.Errorf("%w: get </api/path>", errUsage)
	}
	if !a.store.IsAuthenticated() {
		return errors.New("not signed in")
	}

	var body json.RawMessage
	if err := a.client.Get(ctx, args[0], a.store, &body); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.out, string(body))
	return err
}

// waitArmed runs once wait has subscribed to session end.
var waitArmed = func() {}

func (a *App) wait(ctx context.Context) error {
	ended := make(chan session.Reason, 1)
	a.store.OnLogout(func(r session.Reason) {
		select {
		case ended <- r:
		default:
		}
	})
	waitArmed()

	if !a.store.IsAuthenticated() {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}

	select {
	case r := <-ended:
		fmt.Fprintf(a.out, "Session ended: %s.\n", r)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
