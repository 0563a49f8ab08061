package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/term"

	"accounts-api/internal/config"
	"accounts-api/internal/db"
	"accounts-api/internal/repository"
	"accounts-api/internal/service"
)

// readPassword se reemplaza en tests para no tocar la terminal.
var readPassword = term.ReadPassword

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		log.Fatal(err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal(err)
	}

	input, err := promptSuperuser(bufio.NewReader(os.Stdin), os.Stdout, int(os.Stdin.Fd()))
	if err != nil {
		log.Fatal(err)
	}

	accounts := service.NewAccountService(logger, repository.NewPgUserRepository(pool), service.NewPasswordHasher(cfg.BcryptCost), nil)
	user, err := accounts.CreateSuperuser(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch):
			log.Fatal("passwords didn't match")
		case errors.Is(err, service.ErrEmailTaken):
			log.Fatal("a user with that email already exists")
		default:
			log.Fatal(err)
		}
	}
	fmt.Printf("Superuser %s created.\n", user.Email)
}

func promptSuperuser(reader *bufio.Reader, w io.Writer, fd int) (service.RegisterInput, error) {
	var (
		input service.RegisterInput
		err   error
	)
	if input.Email, err = promptLine(reader, w, "Email: "); err != nil {
		return input, err
	}
	if input.FirstName, err = promptLine(reader, w, "First name: "); err != nil {
		return input, err
	}
	if input.LastName, err = promptLine(reader, w, "Last name: "); err != nil {
		return input, err
	}
	if input.Password, err = promptSecret(w, fd, "Password: "); err != nil {
		return input, err
	}
	if input.ConfirmPassword, err = promptSecret(w, fd, "Password (again): "); err != nil {
		return input, err
	}
	return input, nil
}

func promptLine(reader *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(w io.Writer, fd int, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
