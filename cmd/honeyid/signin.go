package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jonwraymond/honeyid/client"
	"github.com/jonwraymond/honeyid/config"
	"github.com/jonwraymond/honeyid/observe"
	"github.com/jonwraymond/honeyid/resilience"
	"github.com/jonwraymond/honeyid/wsrpc"
)

var errNoUsername = errors.New("honeyid: --username is required")

func userAgentHeader() http.Header {
	return http.Header{"User-Agent": {"honeyid/" + version}}
}

type signinOutput struct {
	UserPublicID int64  `json:"userPublicId"`
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int32  `json:"expiresIn"`
}

func newSigninCmd(configPath *string) *cobra.Command {
	var (
		username string
		attempts int
	)
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign a user in and print the issued tokens as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return errNoUsername
			}
			ctx := cmd.Context()
			cfg, err := config.Load(ctx, *configPath)
			if err != nil {
				return err
			}
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			logger := observe.NewLoggerWithWriter(cfg.Observe.Logging.Level, cmd.ErrOrStderr())
			c, err := client.New(*cfg,
				client.WithLogger(logger),
				client.WithDialOptions(wsrpc.WithHeader(userAgentHeader())),
				client.WithRetry(resilience.NewRetry(resilience.RetryConfig{
					MaxAttempts:  attempts,
					InitialDelay: 200 * time.Millisecond,
					Jitter:       true,
				})),
			)
			if err != nil {
				return err
			}

			s, err := c.Login(ctx, username, password)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(signinOutput{
				UserPublicID: int64(s.UserPublicID),
				Username:     s.Username,
				AccessToken:  s.Tokens.AccessToken,
				RefreshToken: s.Tokens.RefreshToken,
				TokenType:    s.Tokens.TokenType,
				ExpiresIn:    s.Tokens.ExpiresIn,
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username to sign in")
	cmd.Flags().IntVar(&attempts, "dial-attempts", 3, "dial attempts before giving up")
	return cmd
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("honeyid: read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("honeyid: read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
