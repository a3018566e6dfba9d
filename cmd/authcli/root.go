package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"authsystem/internal/client"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultAPI = "http://localhost:8080/api/v1"

type options struct {
	api   string
	state string
}

// NewRootCmd: консольный клиент API. Состояние (токены, тема) лежит в --state.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "authcli",
		Short:         "Клиент Auth System: вход, профиль, смена и сброс пароля",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.api, "api", envOr("AUTHCLI_API", defaultAPI), "базовый URL API")
	cmd.PersistentFlags().StringVar(&opts.state, "state", envOr("AUTHCLI_STATE", defaultStatePath()), "файл состояния")

	cmd.AddCommand(
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newMeCmd(opts),
		newChangePasswordCmd(opts),
		newForgotCmd(opts),
		newResetCmd(opts),
		newThemeCmd(opts),
	)
	return cmd
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".authcli.json"
	}
	return filepath.Join(dir, "authcli", "state.json")
}

// session поднимает сессию из файла состояния.
func (o *options) session(cmd *cobra.Command) (*client.Session, error) {
	s := client.NewSession(client.NewAPIClient(o.api, nil), client.NewFileStore(o.state))
	if err := s.Bootstrap(cmd.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

// prompter читает строки и пароли. С терминала пароль не отображается.
type prompter struct {
	in  io.Reader
	out io.Writer
	r   *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: cmd.InOrStdin(), out: cmd.ErrOrStderr()}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if p.r == nil {
		p.r = bufio.NewReader(p.in)
	}
	s, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) password(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return p.line(label)
}

// describe делает ошибку API читаемой: текст сервера и ошибки полей.
func describe(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if len(apiErr.Fields) == 0 {
		return errors.New(apiErr.Message)
	}
	parts := make([]string, 0, len(apiErr.Fields))
	for field, msg := range apiErr.Fields {
		parts = append(parts, field+": "+msg)
	}
	return fmt.Errorf("%s (%s)", apiErr.Message, strings.Join(parts, "; "))
}
