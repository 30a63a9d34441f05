// Package cartctl implements the cart store operator CLI.
package cartctl

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/cartstore/internal/platform/config"
	"github.com/louisbranch/cartstore/internal/platform/discovery"
	platformgrpc "github.com/louisbranch/cartstore/internal/platform/grpc"
	"github.com/louisbranch/cartstore/internal/platform/logging"
	"github.com/louisbranch/cartstore/internal/platform/timeouts"
	cachekvservice "github.com/louisbranch/cartstore/internal/services/cachekv/api/grpc/cachekv"
	cachesqlite "github.com/louisbranch/cartstore/internal/services/cachekv/storage/sqlite"
	"github.com/louisbranch/cartstore/internal/services/cart/domain"
	"github.com/louisbranch/cartstore/internal/services/cart/events"
	"github.com/louisbranch/cartstore/internal/services/cart/storage"
	"github.com/louisbranch/cartstore/internal/services/cart/store"
)

const usage = `usage: cartctl [flags] <command> [args]

commands:
  stats
  list
  get <cart-id>
  create [cart-id]
  add <cart-id> <product-id> <price> <quantity> [variant-id]
  set-qty <cart-id> <product-id> <quantity> [variant-id]
  remove <cart-id> <product-id> [variant-id]
  remove-product <cart-id> <product-id>
  clear <cart-id>
  delete <cart-id>
  sweep
  shell    read commands from stdin against one store, sweeping the
           fallback tier every CARTSTORE_SWEEP_INTERVAL`

// Config holds cartctl command configuration.
type Config struct {
	CacheAddr  string        `env:"CARTSTORE_CACHEKV_ADDR"`
	CacheDB    string        `env:"CARTSTORE_CACHEKV_DB_PATH"`
	Timeout    time.Duration `env:"CARTSTORE_CARTCTL_TIMEOUT"`
	LogLevel   string        `env:"CARTSTORE_LOG_LEVEL" envDefault:"warn"`
	JSONOutput bool
	// Embedded opens CacheDB directly instead of dialing CacheAddr.
	Embedded bool
	Store    store.Config
	Events   events.Config
	Args     []string
}

// ParseConfig parses environment and flags into a Config. A nil lookup reads
// the process environment.
func ParseConfig(fs *flag.FlagSet, args []string, lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := config.ParseEnvWithLookup(&cfg, lookup); err != nil {
		return Config{}, err
	}
	cfg.CacheAddr = discovery.OrDefaultGRPCAddr(cfg.CacheAddr, discovery.ServiceCacheKV)
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.CLICommand
	}

	fs.StringVar(&cfg.CacheAddr, "cache-addr", cfg.CacheAddr, "cachekv gRPC address (empty = fallback tier only)")
	fs.StringVar(&cfg.CacheDB, "cache-db", cfg.CacheDB, "cachekv sqlite path used with -embedded")
	fs.BoolVar(&cfg.Embedded, "embedded", false, "open the cache database in-process instead of dialing")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error|disabled)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Args = fs.Args()
	if len(cfg.Args) == 0 {
		return Config{}, errors.New("command is required\n" + usage)
	}
	return cfg, nil
}

// Interactive reports whether cfg starts a shell session, which runs until
// its input ends instead of under the command timeout.
func (c Config) Interactive() bool {
	return len(c.Args) > 0 && c.Args[0] == "shell"
}

// Run opens the store described by cfg and executes one command, or a shell
// session reading commands from in.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, errOut io.Writer) error {
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	primary, closePrimary, err := openPrimary(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closePrimary(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close primary tier: %v\n", closeErr)
		}
	}()

	publisher, err := events.Dial(cfg.Events)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close publisher: %v\n", closeErr)
		}
	}()

	opts := []store.Option{
		store.WithLogger(logging.New(logging.Options{
			Service: "cartctl",
			Level:   cfg.LogLevel,
			Console: true,
			Out:     errOut,
		})),
	}
	if publisher != nil {
		opts = append(opts, store.WithPublisher(publisher))
	}
	carts, err := store.New(cfg.Store, primary, opts...)
	if err != nil {
		return err
	}
	p := newPrinter(out, cfg.JSONOutput)
	if cfg.Interactive() {
		if err := wantArgs("shell", cfg.Args[1:], 0, 0); err != nil {
			return err
		}
		return shell(ctx, carts, in, p, errOut)
	}
	return execute(ctx, carts, cfg.Args, p)
}

// shell executes one command per input line against carts until in ends, ctx
// is done, or the line is exit. The fallback sweeper runs for the whole
// session. Command errors are reported on errOut and do not end the session.
func shell(ctx context.Context, carts *store.Store, in io.Reader, p *printer, errOut io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	swept := make(chan struct{})
	go func() {
		defer close(swept)
		carts.RunSweeper(ctx, 0)
	}()
	defer func() {
		cancel()
		<-swept
	}()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		fmt.Fprint(errOut, "cartctl> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("read commands: %w", err)
				}
				return nil
			}
			args := strings.Fields(line)
			if len(args) == 0 {
				continue
			}
			switch args[0] {
			case "exit", "quit":
				return nil
			case "shell":
				fmt.Fprintln(errOut, "Error: already in a shell")
				continue
			}
			if err := execute(ctx, carts, args, p); err != nil {
				fmt.Fprintf(errOut, "Error: %v\n", err)
			}
		}
	}
}

// openPrimary returns the configured primary tier, or nil when none is set.
func openPrimary(ctx context.Context, cfg Config) (storage.PrimaryTier, func() error, error) {
	noop := func() error { return nil }
	if cfg.Embedded {
		path := strings.TrimSpace(cfg.CacheDB)
		if path == "" {
			return nil, noop, errors.New("-cache-db is required with -embedded")
		}
		db, err := cachesqlite.Open(path)
		if err != nil {
			return nil, noop, fmt.Errorf("open cache db: %w", err)
		}
		return db, db.Close, nil
	}

	addr := strings.TrimSpace(cfg.CacheAddr)
	if addr == "" {
		return nil, noop, nil
	}
	conn, err := platformgrpc.DialWithHealth(ctx, platformgrpc.DialConfig{
		Addr:          addr,
		Timeout:       timeouts.CacheDial,
		HealthService: cachekvservice.ServiceName,
	}, platformgrpc.DefaultClientDialOptions()...)
	if err != nil {
		// The store runs on the fallback tier alone when the cache is down.
		var dialErr *platformgrpc.DialError
		if errors.As(err, &dialErr) {
			return nil, noop, nil
		}
		return nil, noop, err
	}
	return cachekvservice.NewClient(conn), conn.Close, nil
}

// execute dispatches one command against carts.
func execute(ctx context.Context, carts *store.Store, args []string, p *printer) error {
	if len(args) == 0 {
		return errors.New("command is required")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "stats":
		if err := wantArgs(cmd, rest, 0, 0); err != nil {
			return err
		}
		return p.stats(carts.Stats(ctx))
	case "list":
		if err := wantArgs(cmd, rest, 0, 0); err != nil {
			return err
		}
		list, res := carts.GetAll(ctx)
		return p.carts(list, res)
	case "get":
		if err := wantArgs(cmd, rest, 1, 1); err != nil {
			return err
		}
		cart, res := carts.Get(ctx, rest[0])
		if !res.Found {
			return p.missing(rest[0], res)
		}
		return p.cart(cart, res)
	case "create":
		if err := wantArgs(cmd, rest, 0, 1); err != nil {
			return err
		}
		id := ""
		if len(rest) == 1 {
			id = rest[0]
		}
		cart, res := carts.GetOrCreate(ctx, id)
		return p.cart(cart, res)
	case "add":
		if err := wantArgs(cmd, rest, 4, 5); err != nil {
			return err
		}
		item, err := parseItem(rest[1:])
		if err != nil {
			return err
		}
		cart, res := carts.AddItem(ctx, rest[0], item)
		return p.cart(cart, res)
	case "set-qty":
		if err := wantArgs(cmd, rest, 3, 4); err != nil {
			return err
		}
		productID, err := parseInt64("product-id", rest[1])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(rest[2])
		if err != nil {
			return fmt.Errorf("quantity must be an integer: %w", err)
		}
		key, err := parseKey(productID, rest[3:])
		if err != nil {
			return err
		}
		cart, res := carts.SetQuantity(ctx, rest[0], key, qty)
		return p.mutation(rest[0], cart, res)
	case "remove":
		if err := wantArgs(cmd, rest, 2, 3); err != nil {
			return err
		}
		productID, err := parseInt64("product-id", rest[1])
		if err != nil {
			return err
		}
		key, err := parseKey(productID, rest[2:])
		if err != nil {
			return err
		}
		cart, res := carts.RemoveItem(ctx, rest[0], key)
		return p.mutation(rest[0], cart, res)
	case "remove-product":
		if err := wantArgs(cmd, rest, 2, 2); err != nil {
			return err
		}
		productID, err := parseInt64("product-id", rest[1])
		if err != nil {
			return err
		}
		cart, res := carts.RemoveProduct(ctx, rest[0], productID)
		return p.mutation(rest[0], cart, res)
	case "clear":
		if err := wantArgs(cmd, rest, 1, 1); err != nil {
			return err
		}
		cart, res := carts.Clear(ctx, rest[0])
		return p.mutation(rest[0], cart, res)
	case "delete":
		if err := wantArgs(cmd, rest, 1, 1); err != nil {
			return err
		}
		return p.deleted(rest[0], carts.Delete(ctx, rest[0]))
	case "sweep":
		if err := wantArgs(cmd, rest, 0, 0); err != nil {
			return err
		}
		return p.sweep(carts.Sweep(ctx))
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func wantArgs(cmd string, args []string, minArgs, maxArgs int) error {
	if len(args) < minArgs || len(args) > maxArgs {
		if minArgs == maxArgs {
			return fmt.Errorf("%s expects %d argument(s), got %d", cmd, minArgs, len(args))
		}
		return fmt.Errorf("%s expects %d to %d arguments, got %d", cmd, minArgs, maxArgs, len(args))
	}
	return nil
}

// parseItem reads <product-id> <price> <quantity> [variant-id].
func parseItem(args []string) (domain.Item, error) {
	productID, err := parseInt64("product-id", args[0])
	if err != nil {
		return domain.Item{}, err
	}
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return domain.Item{}, fmt.Errorf("price must be a number: %w", err)
	}
	qty, err := strconv.Atoi(args[2])
	if err != nil {
		return domain.Item{}, fmt.Errorf("quantity must be an integer: %w", err)
	}
	item := domain.Item{ProductID: productID, Price: price, Quantity: qty}
	if len(args) > 3 {
		variantID, err := parseInt64("variant-id", args[3])
		if err != nil {
			return domain.Item{}, err
		}
		item.VariantID = &variantID
	}
	return item, nil
}

func parseKey(productID int64, variant []string) (domain.ItemKey, error) {
	if len(variant) == 0 {
		return domain.BaseKey(productID), nil
	}
	variantID, err := parseInt64("variant-id", variant[0])
	if err != nil {
		return domain.ItemKey{}, err
	}
	return domain.VariantKey(productID, variantID), nil
}

func parseInt64(name, value string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return v, nil
}
