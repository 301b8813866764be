package cmd

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joescharf/hostel/internal/filter"
	"github.com/joescharf/hostel/internal/identity"
	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/output"
)

var errShellExit = errors.New("exit")

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive session",
	Long: `Start an interactive session against a freshly seeded store.

Log in first, then use the commands listed by 'help'. Arguments with
spaces can be quoted: submit "Broken fan" "The ceiling fan stopped".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return shellRun(cmd.Context(), os.Stdin)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

type shellCommand struct {
	usage string
	help  string
	auth  bool
	run   func(sh *shell, args []string) error
}

var shellCommands map[string]shellCommand

// shellOrder is the order commands are listed in help.
var shellOrder = []string{
	"login", "logout", "whoami", "submit", "list", "show",
	"status", "assign", "feedback", "stats", "staff", "help", "exit",
}

func init() {
	shellCommands = map[string]shellCommand{
		"login":    {usage: "login <email> <student|warden> [password]", help: "Start a session", run: (*shell).login},
		"logout":   {usage: "logout", help: "End the session", auth: true, run: (*shell).logout},
		"whoami":   {usage: "whoami", help: "Show the logged in user", auth: true, run: (*shell).whoami},
		"submit":   {usage: "submit <title> <description> [category] [priority]", help: "Submit a complaint (students)", auth: true, run: (*shell).submit},
		"list":     {usage: "list [tab=..] [status=..] [priority=..] [search]", help: "List complaints", auth: true, run: (*shell).list},
		"show":     {usage: "show <id>", help: "Show one complaint", auth: true, run: (*shell).show},
		"status":   {usage: "status <id> <status>", help: "Change status (wardens)", auth: true, run: (*shell).status},
		"assign":   {usage: "assign <id> [assignee]", help: "Assign to staff (wardens)", auth: true, run: (*shell).assign},
		"feedback": {usage: "feedback <id> <1-5> [comment]", help: "Rate a resolved complaint (students)", auth: true, run: (*shell).feedback},
		"stats":    {usage: "stats", help: "Show summary statistics", auth: true, run: (*shell).stats},
		"staff":    {usage: "staff", help: "List staff teams (wardens)", auth: true, run: (*shell).staff},
		"help":     {usage: "help", help: "Show this help", run: (*shell).help},
		"exit":     {usage: "exit", help: "Leave the shell", run: func(*shell, []string) error { return errShellExit }},
	}
	shellCommands["quit"] = shellCommands["exit"]
}

type shell struct {
	ctx     context.Context
	app     *app
	scanner *bufio.Scanner
	sess    *identity.Session
	// readPassword prompts for a password when login omits it.
	readPassword func() (string, error)
}

func shellRun(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := getApp()
	if err != nil {
		return err
	}

	sh := &shell{ctx: ctx, app: a, scanner: bufio.NewScanner(in)}
	sh.readPassword = sh.promptPassword

	ui.Info("Hostel complaints shell. Type 'help' for commands.")
	for {
		fmt.Fprint(ui.Out, sh.prompt())
		if !sh.scanner.Scan() {
			fmt.Fprintln(ui.Out)
			break
		}
		if err := sh.exec(sh.scanner.Text()); err != nil {
			if errors.Is(err, errShellExit) {
				break
			}
			ui.Error("%v", err)
		}
	}
	sh.endSession()
	return sh.scanner.Err()
}

func (sh *shell) prompt() string {
	if sh.sess == nil {
		return "hostel> "
	}
	return fmt.Sprintf("hostel (%s)> ", sh.sess.User.Role)
}

// exec runs one input line.
func (sh *shell) exec(line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	name := strings.ToLower(args[0])
	c, ok := shellCommands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (type 'help')", name)
	}
	if c.auth && sh.sess == nil {
		return fmt.Errorf("not logged in (use: %s)", shellCommands["login"].usage)
	}
	return c.run(sh, args[1:])
}

// splitArgs splits a line on spaces, honouring double quotes.
func splitArgs(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = ' '
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out, nil
}

func (sh *shell) promptPassword() (string, error) {
	fmt.Fprint(ui.Out, "Password: ")
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Out)
		return string(b), err
	}
	if !sh.scanner.Scan() {
		return "", io.ErrUnexpectedEOF
	}
	return sh.scanner.Text(), nil
}

func (sh *shell) endSession() {
	if sh.sess == nil {
		return
	}
	_ = sh.app.identity.Logout(sh.sess.ID)
	sh.sess = nil
}

func (sh *shell) login(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", shellCommands["login"].usage)
	}
	role, err := models.ParseRole(strings.ToLower(args[1]))
	if err != nil {
		return err
	}
	password := ""
	if len(args) > 2 {
		password = args[2]
	} else {
		if password, err = sh.readPassword(); err != nil {
			return err
		}
	}

	sess, err := sh.app.identity.Login(sh.ctx, args[0], password, role)
	if err != nil {
		return err
	}
	sh.endSession()
	sh.sess = sess
	ui.Success("Logged in as %s (%s)", sess.User.Name, sess.User.Role)
	return nil
}

func (sh *shell) logout([]string) error {
	name := sh.sess.User.Name
	sh.endSession()
	ui.Success("Logged out %s", name)
	return nil
}

func (sh *shell) whoami([]string) error {
	u := sh.sess.User
	fmt.Fprintf(ui.Out, "%s <%s>  %s\n", u.Name, u.Email, output.Cyan(string(u.Role)))
	if u.Role == models.RoleStudent {
		fmt.Fprintf(ui.Out, "  Room %s, %s\n", u.RoomNumber, u.HostelBlock)
	}
	return nil
}

func (sh *shell) submit(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", shellCommands["submit"].usage)
	}
	draft := models.ComplaintDraft{Title: args[0], Description: args[1]}
	if len(args) > 2 {
		draft.Category = models.ComplaintCategory(strings.ToLower(args[2]))
	}
	if len(args) > 3 {
		draft.Priority = models.ComplaintPriority(strings.ToLower(args[3]))
	}
	return submitComplaint(sh.ctx, sh.app, sh.sess, draft)
}

func (sh *shell) list(args []string) error {
	var q filter.Query
	var search []string
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			search = append(search, arg)
			continue
		}
		switch strings.ToLower(key) {
		case "tab":
			q.Tab = filter.Tab(val)
		case "status":
			q.Status = val
		case "priority":
			q.Priority = val
		case "q", "search":
			search = append(search, val)
		default:
			return fmt.Errorf("unknown list option %q (use: tab, status, priority, q)", key)
		}
	}
	q.Search = strings.Join(search, " ")
	return listComplaints(sh.ctx, sh.app, sh.sess, q)
}

func (sh *shell) show(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", shellCommands["show"].usage)
	}
	return showComplaint(sh.ctx, sh.app, sh.sess, args[0])
}

func (sh *shell) status(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", shellCommands["status"].usage)
	}
	return setComplaintStatus(sh.ctx, sh.app, sh.sess, args[0], args[1])
}

func (sh *shell) assign(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s", shellCommands["assign"].usage)
	}
	return assignComplaint(sh.ctx, sh.app, sh.sess, args[0], strings.Join(args[1:], " "))
}

func (sh *shell) feedback(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", shellCommands["feedback"].usage)
	}
	return giveFeedback(sh.ctx, sh.app, sh.sess, args[0], args[1], strings.Join(args[2:], " "))
}

func (sh *shell) stats([]string) error {
	return showStats(sh.ctx, sh.app, sh.sess)
}

func (sh *shell) staff([]string) error {
	staff, err := sh.app.dash.Staff(sh.sess)
	if err != nil {
		return err
	}
	for _, s := range staff {
		fmt.Fprintf(ui.Out, "  %s\n", s)
	}
	return nil
}

func (sh *shell) help([]string) error {
	for _, name := range shellOrder {
		c := shellCommands[name]
		fmt.Fprintf(ui.Out, "  %-52s %s\n", c.usage, c.help)
	}
	return nil
}
