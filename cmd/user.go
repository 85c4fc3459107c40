/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fintrack/apiserver/internal/auth"
	"github.com/fintrack/apiserver/internal/server"
	"github.com/fintrack/apiserver/internal/services"
	"github.com/fintrack/apiserver/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	userCreateUsername  string
	userCreateEmail     string
	userCreateFirstName string
	userCreateLastName  string
)

// userCmd represents the user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Administer user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long: `Creates a user account. The password is prompted for on a terminal
and read from the first line of stdin otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		stores, err := server.OpenStores(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer stores.Close()

		// Tokens are not issued here, so the issuer only needs to be valid.
		tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
		if err != nil {
			return err
		}
		authService := services.NewAuthService(stores.Users, tokens, auth.PasswordPolicy{MinLength: cfg.Auth.PasswordMinLength})

		user, err := authService.CreateUser(cmd.Context(), services.RegisterInput{
			Username:  userCreateUsername,
			Email:     userCreateEmail,
			Password:  password,
			FirstName: userCreateFirstName,
			LastName:  userCreateLastName,
		})
		if err != nil {
			return describeUserError(err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), user.ID)
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <id|username>",
	Short: "Delete a user account with all of its transactions and exports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		stores, err := server.OpenStores(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer stores.Close()

		users := services.NewUserService(stores.Users)
		user, err := users.GetByID(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			user, err = users.GetByUsername(cmd.Context(), args[0])
		}
		if err != nil {
			return describeUserError(err)
		}

		if err := users.Delete(cmd.Context(), user.ID); err != nil {
			return describeUserError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userDeleteCmd)

	userCreateCmd.Flags().StringVar(&userCreateUsername, "username", "", "login name (required)")
	userCreateCmd.Flags().StringVar(&userCreateEmail, "email", "", "email address (required)")
	userCreateCmd.Flags().StringVar(&userCreateFirstName, "first-name", "", "first name")
	userCreateCmd.Flags().StringVar(&userCreateLastName, "last-name", "", "last name")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")
}

// readPassword prompts without echo when in is a terminal.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func describeUserError(err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr
	case errors.Is(err, store.ErrNotFound):
		return errors.New("user not found")
	default:
		return err
	}
}
