package tcp

import (
	"bufio"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siwb/internal/replay"
	servertcp "siwb/internal/server/tcp"
	"siwb/internal/usecases"
)

const (
	testPrivateKeyHex = "22a47fa09a223f2aa079edf85a7c2d4f8720ee63e502ee2869afab7de234b80c"
	testChallenge     = "000102030405060708090a0b0c0d0e0f"
)

func testConfig(addr string) *Config {
	return &Config{
		ServerAddr:     addr,
		ConnectTimeout: time.Second,
		RequestTimeout: 2 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     10 * time.Millisecond,
		MaxMessageSize: 4096,
	}
}

func newWallet(t *testing.T, strategy string) usecases.WalletUsecase {
	t.Helper()
	wallet, err := usecases.NewWalletUsecase("alice", testPrivateKeyHex, strategy)
	require.NoError(t, err)
	return wallet
}

// fakeServer answers connection n with handlers[min(n, len-1)].
func fakeServer(t *testing.T, handlers ...func(conn net.Conn, r *bufio.Reader)) (string, *atomic.Int32) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	var count atomic.Int32
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			n := int(count.Add(1)) - 1
			if n >= len(handlers) {
				n = len(handlers) - 1
			}
			go func(conn net.Conn, handle func(net.Conn, *bufio.Reader)) {
				defer conn.Close()
				handle(conn, bufio.NewReader(conn))
			}(conn, handlers[n])
		}
	}()
	return listener.Addr().String(), &count
}

func readTriple(r *bufio.Reader) {
	for i := 0; i < 3; i++ {
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
	}
}

func TestClientLoginAgainstServer(t *testing.T) {
	for _, strategy := range []string{"recover", "direct"} {
		t.Run(strategy, func(t *testing.T) {
			store, err := replay.NewMemoryStore(time.Minute)
			require.NoError(t, err)
			defer store.Close()

			auth, err := usecases.NewAuthUsecase(usecases.AuthConfig{
				Strategy:     strategy,
				ChallengeTTL: time.Minute,
			}, store, nil, nil)
			require.NoError(t, err)

			listener, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			srv := servertcp.NewServer(&servertcp.Config{Deadline: 2 * time.Second, MaxMessageSize: 4096}, auth, nil)
			go func() { done <- srv.Serve(ctx, listener) }()
			defer func() {
				cancel()
				<-done
			}()

			wallet := newWallet(t, strategy)
			client := NewClient(testConfig(listener.Addr().String()), wallet, nil)

			identity, err := client.Login(context.Background())
			require.NoError(t, err)
			assert.Equal(t, wallet.PublicKeyHex(), identity)
		})
	}
}

func TestClientRetriesUnavailable(t *testing.T) {
	wallet := newWallet(t, "recover")
	addr, count := fakeServer(t,
		func(conn net.Conn, r *bufio.Reader) {
			conn.Write([]byte("ERROR:UNAVAILABLE:Service temporarily unavailable\n"))
		},
		func(conn net.Conn, r *bufio.Reader) {
			conn.Write([]byte("CHALLENGE:" + testChallenge + "\n"))
			readTriple(r)
			conn.Write([]byte("SUCCESS:" + wallet.PublicKeyHex() + "\n"))
		},
	)

	identity, err := NewClient(testConfig(addr), wallet, nil).Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKeyHex(), identity)
	assert.Equal(t, int32(2), count.Load())
}

func TestClientDoesNotRetryRejection(t *testing.T) {
	wallet := newWallet(t, "recover")
	addr, count := fakeServer(t, func(conn net.Conn, r *bufio.Reader) {
		conn.Write([]byte("CHALLENGE:" + testChallenge + "\n"))
		readTriple(r)
		conn.Write([]byte("ERROR:INVALID_SIGNATURE:Sign-in rejected\n"))
	})

	_, err := NewClient(testConfig(addr), wallet, nil).Login(context.Background())
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.False(t, IsRetryableError(err))
	assert.Equal(t, int32(1), count.Load())
}

func TestClientGivesUp(t *testing.T) {
	wallet := newWallet(t, "recover")
	addr, count := fakeServer(t, func(conn net.Conn, r *bufio.Reader) {
		conn.Write([]byte("ERROR:TIMEOUT:Operation timed out\n"))
	})

	_, err := NewClient(testConfig(addr), wallet, nil).Login(context.Background())
	require.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, int32(3), count.Load())
}

func TestClientRejectsBadServer(t *testing.T) {
	wallet := newWallet(t, "recover")

	tests := []struct {
		name    string
		handler func(conn net.Conn, r *bufio.Reader)
		want    error
	}{
		{
			name: "short challenge",
			handler: func(conn net.Conn, r *bufio.Reader) {
				conn.Write([]byte("CHALLENGE:abcd\n"))
			},
			want: ErrInvalidChallenge,
		},
		{
			name: "unknown greeting",
			handler: func(conn net.Conn, r *bufio.Reader) {
				conn.Write([]byte("HELLO\n"))
			},
			want: ErrInvalidProtocol,
		},
		{
			name: "foreign identity",
			handler: func(conn net.Conn, r *bufio.Reader) {
				conn.Write([]byte("CHALLENGE:" + testChallenge + "\n"))
				readTriple(r)
				conn.Write([]byte("SUCCESS:0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798\n"))
			},
			want: ErrInvalidProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, count := fakeServer(t, tt.handler)
			_, err := NewClient(testConfig(addr), wallet, nil).Login(context.Background())
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), count.Load())
		})
	}
}

func TestClientConnectFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	cfg := testConfig(addr)
	cfg.RetryAttempts = 2
	_, err = NewClient(cfg, newWallet(t, "recover"), nil).Login(context.Background())
	require.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.ErrorIs(t, err, ErrConnectFailed)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(NewClientError("read", ErrReadTimeout, "")))
	assert.True(t, IsRetryableError(NewClientError("read", ErrConnectionClosed, "")))
	assert.True(t, IsRetryableError(NewClientError("x", &ResponseError{Code: CodeUnavailable}, "")))
	assert.False(t, IsRetryableError(NewClientError("x", &ResponseError{Code: CodeInvalidFormat}, "")))
	assert.False(t, IsRetryableError(ErrReadTimeout))
	assert.False(t, IsRetryableError(NewClientError("x", ErrInvalidChallenge, "")))
}
