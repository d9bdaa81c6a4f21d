package tcp

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"siwb/internal/domain"
	"siwb/internal/usecases"
	"siwb/pkg/siwb/challenge"
)

const (
	challengePrefix = "CHALLENGE:"
	successPrefix   = "SUCCESS:"
	errorPrefix     = "ERROR:"
)

type Client struct {
	cfg    *Config
	wallet usecases.WalletUsecase
	logger Logger
}

type Config struct {
	ServerAddr     string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	MaxMessageSize int
}

type Logger interface {
	Error(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func NewClient(cfg *Config, wallet usecases.WalletUsecase, logger Logger) *Client {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Client{
		cfg:    cfg,
		wallet: wallet,
		logger: logger,
	}
}

func (c *Client) Start(ctx context.Context) error {
	identity, err := c.Login(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("signed in", "pubkey", identity)
	return nil
}

// Login signs in to the server and returns the public key it accepted.
// Timeouts, dropped connections and UNAVAILABLE answers are retried.
func (c *Client) Login(ctx context.Context) (string, error) {
	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.logger.Info("retrying sign-in",
				"attempt", attempt+1,
				"max_attempts", attempts)
			select {
			case <-ctx.Done():
				return "", NewClientError("Login", ctx.Err(), "cancelled while waiting to retry")
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		identity, err := c.executeSession(ctx)
		if err == nil {
			return identity, nil
		}
		lastErr = err
		c.logger.Error("session error",
			"attempt", attempt+1,
			"error", err)

		if !IsRetryableError(err) {
			return "", err
		}
	}

	return "", NewClientError("Login", fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr), "giving up")
}

func (c *Client) executeSession(ctx context.Context) (string, error) {
	connectCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, err := c.connect(connectCtx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	sessionCtx, cancelSession := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancelSession()

	session := &ClientSession{
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, c.cfg.MaxMessageSize),
		writer:  bufio.NewWriter(conn),
		client:  c,
		context: sessionCtx,
	}

	return session.Execute()
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.cfg.ServerAddr)
	if err != nil {
		return nil, NewClientError("connect", fmt.Errorf("%w: %v", ErrConnectFailed, err), c.cfg.ServerAddr)
	}

	if err := conn.SetDeadline(time.Now().Add(c.cfg.RequestTimeout)); err != nil {
		conn.Close()
		return nil, NewClientError("connect", err, "setting timeout failed")
	}

	return conn, nil
}

type ClientSession struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	client  *Client
	context context.Context
}

func (s *ClientSession) Execute() (string, error) {
	value, err := s.receiveChallenge()
	if err != nil {
		return "", err
	}

	cred, err := s.client.wallet.SignChallenge(value)
	if err != nil {
		return "", NewClientError("signChallenge", ErrSigningFailed, err.Error())
	}

	return s.sendCredentialsAndGetResponse(cred)
}

func (s *ClientSession) receiveChallenge() (string, error) {
	line, err := s.readLine()
	if err != nil {
		return "", NewClientError("receiveChallenge", err, "reading challenge failed")
	}

	if strings.HasPrefix(line, errorPrefix) {
		return "", NewClientError("receiveChallenge", parseErrorResponse(line), "server refused to issue a challenge")
	}
	if !strings.HasPrefix(line, challengePrefix) {
		return "", NewClientError("receiveChallenge", ErrInvalidProtocol, "expected challenge")
	}

	value := strings.TrimPrefix(line, challengePrefix)
	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != challenge.TokenLength {
		return "", NewClientError("receiveChallenge", ErrInvalidChallenge, value)
	}

	s.client.logger.Debug("challenge received", "challenge", value)
	return value, nil
}

func (s *ClientSession) sendCredentialsAndGetResponse(cred *domain.Credentials) (string, error) {
	if strings.ContainsAny(cred.Message, "\r\n") {
		return "", NewClientError("sendCredentials", ErrInvalidProtocol, "message spans multiple lines")
	}

	errCh := make(chan error, 1)
	go func() {
		for _, line := range []string{cred.Message, cred.SignatureHex, cred.PublicKeyHex} {
			if _, err := s.writer.WriteString(line + "\n"); err != nil {
				errCh <- NewClientError("sendCredentials", err, "write failed")
				return
			}
		}
		if err := s.writer.Flush(); err != nil {
			errCh <- NewClientError("sendCredentials", classify(err, ErrWriteTimeout), "flush failed")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return "", err
		}
	case <-s.context.Done():
		return "", NewClientError("sendCredentials", ErrWriteTimeout, "write timeout")
	}

	line, err := s.readLine()
	if err != nil {
		return "", NewClientError("readResponse", err, "reading response failed")
	}
	return s.handleResponse(line)
}

func (s *ClientSession) handleResponse(response string) (string, error) {
	if strings.HasPrefix(response, successPrefix) {
		identity := strings.TrimPrefix(response, successPrefix)
		if identity != s.client.wallet.PublicKeyHex() {
			return "", NewClientError("handleResponse", ErrInvalidProtocol, "server accepted a different key")
		}
		return identity, nil
	}

	if strings.HasPrefix(response, errorPrefix) {
		return "", NewClientError("handleResponse", parseErrorResponse(response), "")
	}

	return "", NewClientError("handleResponse", ErrInvalidProtocol, "invalid response format")
}

// readLine reads one server line, bounded by the session context.
func (s *ClientSession) readLine() (string, error) {
	type result struct {
		line string
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		line, err := s.reader.ReadSlice('\n')
		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				err = ErrInvalidMessageSize
			}
			resultCh <- result{"", classify(err, ErrReadTimeout)}
			return
		}
		resultCh <- result{strings.TrimRight(string(line), "\r\n"), nil}
	}()

	select {
	case r := <-resultCh:
		return r.line, r.err
	case <-s.context.Done():
		return "", ErrReadTimeout
	}
}

func parseErrorResponse(line string) error {
	parts := strings.SplitN(strings.TrimPrefix(line, errorPrefix), ":", 2)
	if len(parts) != 2 {
		return ErrInvalidProtocol
	}
	return &ResponseError{Code: parts[0], Message: parts[1]}
}

// classify maps transport failures onto the package sentinels so
// IsRetryableError can see them.
func classify(err, timeout error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		return ErrConnectionClosed
	case errors.As(err, &netErr) && netErr.Timeout():
		return timeout
	default:
		return err
	}
}
