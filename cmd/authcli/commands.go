package main

import (
	"fmt"

	"authsystem/internal/client"

	"github.com/spf13/cobra"
)

func newRegisterCmd(o *options) *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Создать аккаунт",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}
			pwd, err := newPrompter(cmd).password("Password: ")
			if err != nil {
				return err
			}
			user, err := s.Register(cmd.Context(), client.RegisterRequest{Email: email, FullName: name, Password: pwd})
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&name, "name", "", "полное имя")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLoginCmd(o *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Войти",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}
			pwd, err := newPrompter(cmd).password("Password: ")
			if err != nil {
				return err
			}
			if err := s.Login(cmd.Context(), email, pwd); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", s.CurrentUser().FullName)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Выйти (токены удаляются локально)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}
			if err := s.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newMeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Показать профиль",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}
			if err := s.Authorize(); err != nil {
				return err
			}
			user, err := s.Reload(cmd.Context())
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nid: %s\nactive: %t\ncreated: %s\n",
				user.FullName, user.Email, user.ID, user.IsActive, user.CreatedAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func newChangePasswordCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Сменить пароль",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}
			if err := s.Authorize(); err != nil {
				return err
			}
			p := newPrompter(cmd)
			current, err := p.password("Current password: ")
			if err != nil {
				return err
			}
			next, err := p.password("New password: ")
			if err != nil {
				return err
			}
			msg, err := s.ChangePassword(cmd.Context(), current, next)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newForgotCmd(o *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot",
		Short: "Запросить ссылку для сброса пароля",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}
			msg, err := s.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetCmd(o *options) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Установить новый пароль по токену из письма",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}
			pwd, err := newPrompter(cmd).password("New password: ")
			if err != nil {
				return err
			}
			msg, err := s.ResetPassword(cmd.Context(), token, pwd)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "токен из ссылки")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newThemeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "theme [toggle]",
		Short:     "Показать или переключить тему (light/dark)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if args[0] != "toggle" {
					return fmt.Errorf("unknown theme action %q", args[0])
				}
				if _, err := s.ToggleTheme(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Theme())
			return nil
		},
	}
	return cmd
}
