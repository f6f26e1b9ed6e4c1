package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xPratikag/clinicctl/internal/auth"
)

// PasswordEnv supplies the login password when --password is not given.
const PasswordEnv = "CLINICCTL_PASSWORD"

var (
	loginEmail    string
	loginPassword string
	loginRole     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the bearer token",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored bearer token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Operator email (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (default $"+PasswordEnv+")")
	loginCmd.Flags().StringVar(&loginRole, "role", "superadmin", "Role to log in as")
	_ = loginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	password := loginPassword
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	if strings.TrimSpace(password) == "" {
		return usagef("--password or $%s is required", PasswordEnv)
	}

	tok, err := auth.Login(cmd.Context(), s.http, s.cfg.LoginBase(), auth.Credentials{
		Email:    strings.TrimSpace(loginEmail),
		Password: password,
		Role:     loginRole,
	})
	if err != nil {
		s.notify.Error(err.Error())
		return shown(err)
	}
	if err := s.auth.Set(tok); err != nil {
		return err
	}

	msg := "Logged in as " + loginEmail
	if exp := s.auth.Expiry(); !exp.IsZero() {
		msg += fmt.Sprintf(" (session expires %s)", exp.Local().Format("2006-01-02 15:04"))
	}
	s.notify.Success(msg)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.auth.Clear(); err != nil {
		return err
	}
	s.notify.Success("Logged out")
	return nil
}
