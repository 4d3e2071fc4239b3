// Package shell is the interactive terminal front end of the storefront.
package shell

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/juju/ansiterm"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/webbrowser"
	"github.com/kballard/go-shellquote"

	"github.com/SigNoz/ecommerce-go-storefront/internal/checkout"
	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/state"
	"github.com/SigNoz/ecommerce-go-storefront/internal/views"
)

var logger = loggo.GetLogger("storefront.shell")

// errQuit ends Run.
const errQuit = errors.ConstError("quit")

// Config holds what the shell is built from.
type Config struct {
	Deps        views.Deps
	Payments    checkout.Authorizer
	Currency    string
	DownloadDir string
	Clock       clock.Clock
	SearchDelay time.Duration
	Metrics     *metrics.AppMetrics

	// Out receives all output.
	Out io.Writer
	// Color enables ANSI colours on Out.
	Color bool
	// HistoryFile keeps the command history between runs.
	HistoryFile string
	// OpenURL opens receipts. It defaults to the system browser.
	OpenURL func(*url.URL) error
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// Shell reads commands and renders the views.
type Shell struct {
	cfg  Config
	deps views.Deps

	home          *views.Home
	list          *views.ProductList
	detail        *views.ProductDetail
	cart          *views.CartView
	history       *views.OrderHistory
	confirmation  *views.OrderConfirmation
	login         *views.LoginForm
	register      *views.RegisterForm
	profile       *views.ProfileForm
	adminProducts *views.AdminProducts
	adminOrders   *views.AdminOrders
	dashboard     *views.AdminDashboard
	flow          *checkout.Checkout

	commands map[string]command

	// readPassword prompts without echo; nil outside Run.
	readPassword func(prompt string) (string, error)

	mu       sync.Mutex
	out      *ansiterm.Writer
	errCount int
	expired  bool
	inFlow   bool
}

// New builds a shell. The shell is the notifier of the views it drives.
func New(cfg Config) *Shell {
	if cfg.OpenURL == nil {
		cfg.OpenURL = webbrowser.Open
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	s := &Shell{cfg: cfg, out: ansiterm.NewWriter(cfg.Out)}
	s.out.SetColorCapable(cfg.Color)
	deps := cfg.Deps
	deps.Notifier = s
	s.deps = deps

	s.home = views.NewHome(deps)
	s.list = views.NewProductList(deps, cfg.Clock, cfg.SearchDelay)
	s.detail = views.NewProductDetail(deps)
	s.cart = views.NewCartView(deps)
	s.history = views.NewOrderHistory(deps, cfg.DownloadDir)
	s.confirmation = views.NewOrderConfirmation(deps, cfg.DownloadDir)
	s.login = views.NewLoginForm(deps)
	s.register = views.NewRegisterForm(deps)
	s.profile = views.NewProfileForm(deps)
	s.adminProducts = views.NewAdminProducts(deps)
	s.adminOrders = views.NewAdminOrders(deps)
	s.dashboard = views.NewAdminDashboard(deps)
	s.flow = checkout.New(checkout.Config{
		Cart:     deps.Cart,
		Orders:   deps.Orders,
		Payments: cfg.Payments,
		Profile:  func() *models.User { return deps.Auth.Snapshot().User },
		Currency: cfg.Currency,
		Metrics:  cfg.Metrics,
	})
	s.commands = s.commandTable()
	return s
}

// Success implements views.Notifier.
func (s *Shell) Success(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	success.Fprintf(s.out, "%s\n", msg)
}

// Error implements views.Notifier.
func (s *Shell) Error(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errCount++
	failure.Fprintf(s.out, "%s\n", msg)
}

func (s *Shell) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// SessionExpired is the gateway's unauthorized hook. It ends the session
// and, if a user was signed in, says so; the next prompt asks for a login.
func (s *Shell) SessionExpired() {
	hadUser := s.deps.Auth.Snapshot().User != nil
	s.deps.Auth.HandleUnauthorized()
	s.deps.Cart.Reset()
	s.deps.Orders.Reset()
	if !hadUser {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
	s.inFlow = false
	warning.Fprintf(s.out, "Session expired, please log in again\n")
}

// Exec runs one command line. Errors the views have not already shown
// are printed.
func (s *Shell) Exec(ctx context.Context, line string) error {
	args, err := shellquote.Split(line)
	if err != nil {
		s.Error(views.Message(err))
		return errors.Trace(err)
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := s.commands[args[0]]
	if !ok {
		s.Error(fmt.Sprintf("Unknown command %q, try help", args[0]))
		return errors.NotFoundf("command %q", args[0])
	}

	s.mu.Lock()
	before := s.errCount
	s.mu.Unlock()

	err = cmd.run(ctx, args[1:])
	if err == nil || errors.Is(err, errQuit) {
		return err
	}
	if errors.Is(err, state.ErrStale) {
		logger.Debugf("%s: %v", args[0], err)
		return nil
	}
	s.mu.Lock()
	reported := s.errCount > before
	s.mu.Unlock()
	switch {
	case errors.Is(err, views.ErrLoginRequired):
		s.Error("Please log in to continue: login <email>")
	case errors.Is(err, views.ErrAdminRequired):
		s.Error("Admin access required")
		_ = s.renderHome(ctx)
	case !reported:
		s.Error(views.Message(err))
	}
	return err
}

// Run reads commands until quit, EOF or ctx ends.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     s.cfg.HistoryFile,
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          s.cfg.Out,
		Listener:        readline.FuncListener(s.onKey),
	})
	if err != nil {
		return errors.Annotate(err, "starting terminal")
	}
	defer rl.Close()
	defer s.list.Close()
	s.readPassword = func(prompt string) (string, error) {
		b, err := rl.ReadPassword(prompt)
		return string(b), err
	}

	s.printf("Welcome to the storefront. Type help for the commands.\n")
	_ = s.renderHome(ctx)
	for ctx.Err() == nil {
		if s.takeExpired() {
			s.loginPrompt(ctx, rl)
		}
		rl.SetPrompt(s.prompt())
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return errors.Trace(err)
		}
		if err := s.Exec(ctx, line); errors.Is(err, errQuit) {
			return nil
		} else if err != nil {
			logger.Debugf("%q: %v", line, err)
		}
	}
	return nil
}

func (s *Shell) takeExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := s.expired
	s.expired = false
	return expired
}

// loginPrompt asks for credentials once; an empty email skips it.
func (s *Shell) loginPrompt(ctx context.Context, rl *readline.Instance) {
	rl.SetPrompt("email: ")
	email, err := rl.Readline()
	if err != nil || strings.TrimSpace(email) == "" {
		return
	}
	password, err := s.readPassword("password: ")
	if err != nil {
		return
	}
	_, _ = s.login.Submit(ctx, email, password)
}

// onKey feeds a search being typed into the debounced product filter.
func (s *Shell) onKey(line []rune, pos int, key rune) ([]rune, int, bool) {
	if text, ok := strings.CutPrefix(string(line), "search "); ok && key != readline.CharEnter {
		s.list.SetSearch(strings.TrimSpace(text))
	}
	return nil, 0, false
}

func (s *Shell) prompt() string {
	s.mu.Lock()
	inFlow := s.inFlow
	s.mu.Unlock()
	who := "guest"
	if u := s.deps.Auth.Snapshot().User; u != nil {
		who = u.Username
	}
	if inFlow {
		return fmt.Sprintf("storefront(%s) checkout:%s> ", who, s.flow.State().Step)
	}
	return fmt.Sprintf("storefront(%s)> ", who)
}

func (s *Shell) completer() *readline.PrefixCompleter {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		switch name {
		case "admin":
			items = append(items, readline.PcItem(name,
				readline.PcItem("products"), readline.PcItem("orders"), readline.PcItem("dashboard"),
				readline.PcItem("status"), readline.PcItem("create"), readline.PcItem("edit"), readline.PcItem("delete")))
		case "pay":
			items = append(items, readline.PcItem(name, readline.PcItem("card"), readline.PcItem("manual")))
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Shell) commandTable() map[string]command {
	return map[string]command{
		"help":     {"help", "show this list", s.cmdHelp},
		"quit":     {"quit", "leave the storefront", func(context.Context, []string) error { return errQuit }},
		"login":    {"login <email> [password]", "log in", s.cmdLogin},
		"logout":   {"logout", "log out", s.cmdLogout},
		"register": {"register <username> <email> <first> <last>", "create an account", s.cmdRegister},
		"me":       {"me", "show your profile", s.cmdMe},
		"profile":  {"profile <first> <last> [phone] [address]", "update your profile", s.cmdProfile},
		"home":     {"home", "featured products", func(ctx context.Context, _ []string) error { return s.renderHome(ctx) }},
		"products": {"products [page]", "browse the catalog", s.cmdProducts},
		"search":   {"search <text>", "filter the catalog by text", s.cmdSearch},
		"category": {"category <id>|all", "filter the catalog by category", s.cmdCategory},
		"product":  {"product <id>", "show a product", s.cmdProduct},
		"qty":      {"qty +|-|<n>", "change the quantity on the product screen", s.cmdQty},
		"add":      {"add [<id> [qty]]", "add a product to the cart", s.cmdAdd},
		"cart":     {"cart", "show the cart", s.cmdCart},
		"inc":      {"inc <item>", "one more of a cart item", s.cmdInc},
		"dec":      {"dec <item>", "one less of a cart item", s.cmdDec},
		"rm":       {"rm <item>", "remove a cart item", s.cmdRemove},
		"clear":    {"clear", "empty the cart", s.cmdClear},
		"checkout": {"checkout", "start checking out", s.cmdCheckout},
		"ship":     {"ship <postal code> [address]", "enter shipping details", s.cmdShip},
		"pay":      {"pay card <token> | pay manual", "choose how to pay", s.cmdPay},
		"review":   {"review", "review the order", s.cmdReview},
		"back":     {"back", "previous checkout step", s.cmdBack},
		"place":    {"place", "place the order", s.cmdPlace},
		"orders":   {"orders", "your order history", s.cmdOrders},
		"order":    {"order <id>", "show an order", s.cmdOrder},
		"cancel":   {"cancel <id>", "cancel an order", s.cmdCancel},
		"receipt":  {"receipt <id> [--open]", "download an order receipt", s.cmdReceipt},
		"admin":    {"admin products|orders|dashboard|status|create|edit|delete", "store administration", s.cmdAdmin},
	}
}

func (s *Shell) cmdHelp(context.Context, []string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	s.mu.Lock()
	defer s.mu.Unlock()
	table := newTable()
	for _, name := range names {
		table.AddRow(s.commands[name].usage, s.commands[name].help)
	}
	fmt.Fprintln(s.out, table)
	return nil
}

// need checks that a command got at least n arguments.
func (s *Shell) need(name string, args []string, n int) error {
	if len(args) < n {
		return errors.NewNotValid(nil, "usage: "+s.commands[name].usage)
	}
	return nil
}
