package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"siwb/internal/domain"
	"siwb/internal/usecases"
)

const (
	challengePrefix = "CHALLENGE:"
	successPrefix   = "SUCCESS:"
	errorPrefix     = "ERROR:"

	// errorWriteGrace is how long an error response may take once the
	// session deadline has already passed.
	errorWriteGrace = time.Second
)

type Server struct {
	cfg         *Config
	authUsecase usecases.AuthUsecase
	logger      Logger
}

type Config struct {
	Address        string
	KeepAlive      time.Duration
	Deadline       time.Duration
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

func NewServer(cfg *Config, authUsecase usecases.AuthUsecase, logger Logger) *Server {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Server{
		cfg:         cfg,
		authUsecase: authUsecase,
		logger:      logger,
	}
}

func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{
		KeepAlive: s.cfg.KeepAlive,
	}

	listener, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return NewConnectionError("Run", err, "failed to start listener")
	}

	s.logger.Info("server started", "address", listener.Addr().String())

	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done, then waits for
// in-flight sessions. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()
	defer listener.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				if ctx.Err() != nil {
					s.logger.Info("server stopped")
					return nil
				}
				return NewConnectionError("serve", ErrConnectionClosed, "listener closed")
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(parent context.Context, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("connection close failed",
				"error", NewConnectionError("handleConnection", err, "cleanup failed"))
		}
	}()

	ctx, cancel := context.WithTimeout(parent, s.cfg.Deadline)
	defer cancel()

	if err := conn.SetDeadline(time.Now().Add(s.cfg.Deadline)); err != nil {
		s.logger.Error("set deadline failed",
			"error", NewConnectionError("handleConnection", err, "setting timeout failed"))
		return
	}

	session := &Session{
		id:      uuid.NewString(),
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, s.cfg.MaxMessageSize),
		writer:  bufio.NewWriter(conn),
		server:  s,
		context: ctx,
	}

	s.logger.Debug("session opened", "session", session.id, "remote", conn.RemoteAddr().String())

	if err := session.Handle(); err != nil {
		s.handleError(session, err)
	}
}

type Session struct {
	id      string
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	server  *Server
	context context.Context
}

// Handle runs one sign-in exchange: challenge out, credentials in, verdict out.
func (s *Session) Handle() error {
	challenge, err := s.sendChallenge()
	if err != nil {
		return fmt.Errorf("failed to send challenge: %w", err)
	}

	cred, err := s.readCredentials()
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	if err := s.validateAndRespond(challenge, cred); err != nil {
		return fmt.Errorf("failed to validate and respond: %w", err)
	}

	return nil
}

func (s *Session) sendChallenge() (string, error) {
	challenge, err := s.server.authUsecase.IssueChallenge(s.context)
	if err != nil {
		return "", NewConnectionError("sendChallenge", ErrChallengeFailed, err.Error())
	}

	if err := s.write(challengePrefix + challenge.Value + "\n"); err != nil {
		return "", NewConnectionError("sendChallenge", fmt.Errorf("%w: %w", ErrChallengeDelivery, err), "write challenge failed")
	}

	s.server.logger.Info("challenge sent",
		"session", s.id,
		"expires_at", challenge.ExpiresAt.UTC().Format(time.RFC3339))

	return challenge.Value, nil
}

func (s *Session) readCredentials() (*domain.Credentials, error) {
	type result struct {
		cred *domain.Credentials
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		var lines [3]string
		for i := range lines {
			line, err := s.readLine()
			if err != nil {
				resultCh <- result{nil, err}
				return
			}
			if strings.TrimSpace(line) == "" {
				resultCh <- result{nil, ErrInvalidProtocol}
				return
			}
			lines[i] = line
		}
		resultCh <- result{&domain.Credentials{
			Message:      lines[0],
			SignatureHex: strings.TrimSpace(lines[1]),
			PublicKeyHex: strings.TrimSpace(lines[2]),
		}, nil}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			return nil, NewConnectionError("readCredentials", r.err, "reading credentials failed")
		}
		return r.cred, nil
	case <-s.context.Done():
		if errors.Is(s.context.Err(), context.Canceled) {
			return nil, NewConnectionError("readCredentials", ErrServerShutdown, "session interrupted")
		}
		return nil, NewConnectionError("readCredentials", ErrReadTimeout, "context deadline exceeded")
	}
}

// readLine returns the next line without its terminator. Lines longer than
// the reader's buffer are rejected.
func (s *Session) readLine() (string, error) {
	line, err := s.reader.ReadSlice('\n')
	if err != nil {
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			return "", ErrMessageTooLarge
		case errors.Is(err, io.EOF):
			return "", ErrConnectionClosed
		case isNetTimeout(err):
			return "", ErrReadTimeout
		default:
			return "", err
		}
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

func (s *Session) validateAndRespond(challenge string, cred *domain.Credentials) error {
	ok, err := s.server.authUsecase.Authenticate(s.context, challenge, cred)
	if err != nil {
		return NewConnectionError("validateAndRespond", err, "authentication unavailable")
	}
	if !ok {
		return NewConnectionError("validateAndRespond", ErrInvalidLogin, "verification failed")
	}

	if err := s.write(successPrefix + cred.PublicKeyHex + "\n"); err != nil {
		return NewConnectionError("validateAndRespond", err, "write response failed")
	}

	s.server.logger.Info("sign-in accepted", "session", s.id, "pubkey", cred.PublicKeyHex)
	return nil
}

// write flushes msg to the peer, giving up when the session context ends.
func (s *Session) write(msg string) error {
	errCh := make(chan error, 1)
	go func() {
		_, err := s.writer.WriteString(msg)
		if err == nil {
			err = s.writer.Flush()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if isNetTimeout(err) {
			return ErrWriteTimeout
		}
		return err
	case <-s.context.Done():
		return ErrWriteTimeout
	}
}

func (s *Server) handleError(session *Session, err error) {
	response := ToErrorResponse(err)
	if response == ErrRespInvalidSignature {
		s.logger.Info("sign-in rejected", "session", session.id, "error", err)
	} else {
		s.logger.Error("client error",
			"session", session.id,
			"code", response.Code,
			"message", response.Message,
			"error", err)
	}

	if errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrWriteTimeout) {
		return
	}

	if err := session.conn.SetWriteDeadline(time.Now().Add(errorWriteGrace)); err != nil {
		s.logger.Error("set deadline failed", "session", session.id, "error", err)
		return
	}
	if err := sendErrorResponse(session.writer, response); err != nil {
		s.logger.Error("failed to send error response", "session", session.id, "error", err)
	}
}

func sendErrorResponse(writer *bufio.Writer, response ErrorResponse) error {
	_, err := writer.WriteString(fmt.Sprintf("%s%s:%s\n", errorPrefix, response.Code, response.Message))
	if err != nil {
		return err
	}
	return writer.Flush()
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
