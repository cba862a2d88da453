// Command createsuperuser adds a staff superuser to the configured database.
// Registration never sets the privilege flags, so this is how the first
// administrator is created.
//
//	SESSION_SECRET=... go run ./cmd/createsuperuser -username admin -email admin@example.com
//
// The password is read from -password or, when that is empty, from
// TEAMBOARD_SUPERUSER_PASSWORD so it stays out of shell history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/config"
	"github.com/sakif/teamboard/internal/server"
	"github.com/sakif/teamboard/internal/service"
)

const passwordEnv = "TEAMBOARD_SUPERUSER_PASSWORD"

func main() {
	username := flag.String("username", "", "login name of the new superuser")
	email := flag.String("email", "", "email address (optional)")
	password := flag.String("password", "", "password; defaults to $"+passwordEnv)
	flag.Parse()

	if *password == "" {
		*password = os.Getenv(passwordEnv)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if err := run(context.Background(), logger, *username, *email, *password); err != nil {
		fmt.Fprintln(os.Stderr, "createsuperuser:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, username, email, password string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := server.OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	registration := service.NewRegistrationService(store, auth.NewPasswordService(), logger)
	user, err := registration.CreateSuperuser(ctx, username, email, password)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return fieldError(apperror.FieldsOf(err))
		}
		return err
	}

	fmt.Printf("Superuser %q created (id %s).\n", user.Username, user.ID)
	return nil
}

// fieldError flattens form errors into one line per field, in field order.
func fieldError(fe apperror.FieldErrors) error {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var errs []error
	for _, field := range fields {
		for _, msg := range fe.For(field) {
			errs = append(errs, fmt.Errorf("%s: %s", field, msg))
		}
	}
	return errors.Join(errs...)
}
