// Package remote runs commands on the peer over SSH. Every call opens
// an independent connection: the link is a point-to-point serial
// channel and sessions on it are cheap compared to the cost of keeping
// a long-lived connection consistent across peer reboots.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultExecTimeout = 10 * time.Minute
)

// ExecError reports a remote command that ran but exited non-zero.
type ExecError struct {
	Cmd    string
	Output []byte
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("remote command %q failed: %v", e.Cmd, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Executor holds the fixed invocation template for the peer: key-only
// authentication with the designated private key, no host-key
// verification (the peer regenerates its host key on every reflash),
// short dial timeout.
type Executor struct {
	User        string
	Host        string
	Port        int
	KeyPath     string
	DialTimeout time.Duration
	// ExecTimeout bounds every call once connected, so a wedged
	// remote command cannot block the run indefinitely.
	ExecTimeout time.Duration
}

func NewExecutor(user, host, keyPath string) *Executor {
	return &Executor{
		User:        user,
		Host:        host,
		Port:        22,
		KeyPath:     keyPath,
		DialTimeout: defaultDialTimeout,
		ExecTimeout: defaultExecTimeout,
	}
}

func (e *Executor) clientConfig() (*ssh.ClientConfig, error) {
	keyData, err := os.ReadFile(e.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %w", e.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", e.KeyPath, err)
	}
	return &ssh.ClientConfig{
		User:            e.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         e.DialTimeout,
	}, nil
}

func (e *Executor) addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e *Executor) run(ctx context.Context, command string, stdin io.Reader) ([]byte, error) {
	if e.ExecTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.ExecTimeout)
		defer cancel()
	}

	cfg, err := e.clientConfig()
	if err != nil {
		return nil, err
	}

	client, err := ssh.Dial("tcp", e.addr(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", e.addr(), err)
	}
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer sess.Close()

	var out bytes.Buffer
	sess.Stdout = &out
	sess.Stderr = &out
	sess.Stdin = stdin

	log.Debug().Str("host", e.Host).Str("cmd", command).Msg("running remote command")

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(command)
	}()

	select {
	case <-ctx.Done():
		// Closing the client unblocks sess.Run
		client.Close()
		<-done
		return out.Bytes(), ctx.Err()
	case err := <-done:
		if err != nil {
			return out.Bytes(), &ExecError{Cmd: command, Output: out.Bytes(), Err: err}
		}
		return out.Bytes(), nil
	}
}

// Run executes a single command line and returns its combined output.
func (e *Executor) Run(ctx context.Context, command string) ([]byte, error) {
	return e.run(ctx, command, nil)
}

// RunScript streams a multi-line script to a remote shell's stdin.
// The interpreter is part of the command line so callers can pick a
// privileged one ("sudo sh -s") for configuration payloads.
func (e *Executor) RunScript(ctx context.Context, interpreter, script string) ([]byte, error) {
	return e.run(ctx, interpreter, strings.NewReader(script))
}

// Probe checks key-only reachability. Used as the fatal preflight
// gate: nothing is sent to the peer until this succeeds.
func (e *Executor) Probe(ctx context.Context) error {
	_, err := e.Run(ctx, "true")
	return err
}
