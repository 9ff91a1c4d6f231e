package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/blockedby/grouppulse/internal/logger"
)

// CredentialsProvider supplies login credentials on demand. Each method is
// invoked only when Telegram challenges for that credential, so an account
// without 2FA never triggers SecondFactor.
type CredentialsProvider interface {
	PhoneNumber() (string, error)
	VerificationCode() (string, error)
	SecondFactor() (string, error)
}

// TerminalPrompter asks for credentials interactively on the terminal.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter creates a prompter reading from stdin.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

func (p *TerminalPrompter) prompt(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PhoneNumber asks for the phone number with country code.
func (p *TerminalPrompter) PhoneNumber() (string, error) {
	return p.prompt("enter your phone number (with country code, e.g. +1234567890): ")
}

// VerificationCode asks for the one-time code sent by Telegram.
func (p *TerminalPrompter) VerificationCode() (string, error) {
	return p.prompt("enter the code you received: ")
}

// SecondFactor asks for the 2FA cloud password.
func (p *TerminalPrompter) SecondFactor() (string, error) {
	return p.prompt("enter your 2fa password: ")
}

// flowAuthenticator adapts a CredentialsProvider to gotd's auth flow.
// Prompt errors are logged and surfaced to the flow; the flow's own
// challenge loop decides whether to re-ask.
type flowAuthenticator struct {
	creds CredentialsProvider
	log   *logger.Logger
}

var _ auth.UserAuthenticator = flowAuthenticator{}

func (a flowAuthenticator) Phone(_ context.Context) (string, error) {
	phone, err := a.creds.PhoneNumber()
	if err != nil {
		a.log.Error().Err(err).Msg("telegram: phone prompt failed")
		return "", err
	}
	return phone, nil
}

func (a flowAuthenticator) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	code, err := a.creds.VerificationCode()
	if err != nil {
		a.log.Error().Err(err).Msg("telegram: code prompt failed")
		return "", err
	}
	return code, nil
}

func (a flowAuthenticator) Password(_ context.Context) (string, error) {
	password, err := a.creds.SecondFactor()
	if err != nil {
		a.log.Error().Err(err).Msg("telegram: 2fa prompt failed")
		return "", err
	}
	return password, nil
}

func (a flowAuthenticator) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (a flowAuthenticator) SignUp(_ context.Context) (auth.UserInfo, error) {
	// login-only client, never registers new accounts
	return auth.UserInfo{}, errors.New("sign up is not supported")
}
