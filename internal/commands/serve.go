package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"hubdeck/internal/constants"
	"hubdeck/internal/database"
	"hubdeck/internal/logger"
	"hubdeck/internal/version"
	"hubdeck/internal/webconfig"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

type serveOptions struct {
	port     int
	bind     string
	debug    bool
	user     string
	password string
}

func parseServeArgs(args []string) (serveOptions, error) {
	var opts serveOptions
	next := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		*i++
		return args[*i], nil
	}
	for i := 0; i < len(args); i++ {
		var err error
		switch args[i] {
		case "--port", "-p":
			var v string
			if v, err = next(&i, args[i]); err == nil {
				opts.port, err = strconv.Atoi(v)
				if err != nil || opts.port <= 0 || opts.port > 65535 {
					err = fmt.Errorf("invalid port %q", v)
				}
			}
		case "--bind", "-b":
			opts.bind, err = next(&i, args[i])
		case "--user", "-u":
			opts.user, err = next(&i, args[i])
		case "--password", "--pass":
			opts.password, err = next(&i, args[i])
		case "--debug":
			opts.debug = true
		default:
			err = fmt.Errorf("unknown argument %q", args[i])
		}
		if err != nil {
			return opts, err
		}
	}
	if (opts.user == "") != (opts.password == "") {
		return opts, errors.New("--user and --password must be given together")
	}
	return opts, nil
}

func RunServe(args []string) int {
	opts, err := parseServeArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	cfg, err := webconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
		if err := webconfig.Save(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to save config: %v\n", err)
		} else {
			fmt.Printf("port %d saved to config\n", cfg.Server.Port)
		}
	}
	if opts.bind != "" {
		cfg.Server.Bind = opts.bind
	}
	if opts.debug {
		cfg.Log.Mode = "debug"
		cfg.Log.Level = "debug"
	}

	logger.Init(cfg.Log)
	logger.Log.Info().Str("version", version.Version).Msg("hubdeck starting")

	if err := database.Init(cfg.Database, cfg.IsDebug()); err != nil {
		logger.Log.Error().Err(err).Msg("database init failed")
		return 1
	}
	defer database.Close()

	generated, err := bootstrapAdmin(opts.user, opts.password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := newApp(ctx, cfg)
	a.start(ctx)
	defer a.stop()

	addr := cfg.ListenAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Log.Error().Err(err).Str("addr", addr).Msg("listen failed")
		return 1
	}
	printBanner(cfg, generated)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Log.Error().Err(err).Msg("server failed")
			return 1
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn().Err(err).Msg("graceful shutdown timed out")
	}
	logger.Log.Info().Msg("server stopped")
	return 0
}

type generatedCredentials struct {
	Username string
	Password string
}

// bootstrapAdmin creates the first admin. With no explicit credentials it
// generates a password and returns it for display; it is a no-op once any
// account exists.
func bootstrapAdmin(username, password string) (*generatedCredentials, error) {
	repo := database.NewUserRepo()
	count, err := repo.Count()
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		if username != "" {
			fmt.Printf("%d account(s) already exist, skipping initial user\n", count)
		}
		return nil, nil
	}

	var gen *generatedCredentials
	if username == "" {
		username, password = "admin", generateToken(6)
		gen = &generatedCredentials{Username: username, Password: password}
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := repo.Create(&database.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         constants.RoleAdmin,
	}); err != nil {
		return nil, fmt.Errorf("create initial user: %w", err)
	}
	logger.Auth.Info().Str("username", username).Msg("initial admin account created")
	return gen, nil
}
