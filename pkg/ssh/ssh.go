// Package ssh fetches candidate binaries from remote hosts so they can be
// scanned without installing an agent on the target.
package ssh

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	DefaultPort    = 22
	defaultTimeout = 20 * time.Second
)

// Client wraps an SSH connection configured through the With* builder
// methods, then opened with Connect.
type Client struct {
	host    string
	user    string
	port    int
	tout    time.Duration
	auth    []ssh.AuthMethod
	conn    ssh.Conn
	client  *ssh.Client
	closed  *atomic.Bool
	verbose bool
}

func (c *Client) String() string {
	closed := ""
	if c.closed.Load() {
		closed = " (closed)"
	}
	prefix := ""
	if c.conn != nil {
		prefix = fmt.Sprintf("%s -> ", c.conn.LocalAddr())
	}
	return fmt.Sprintf("%s%s@%s:%d%s", prefix, c.user, c.host, c.port, closed)
}

// New returns an unconnected Client for host as user.
func New(host string, user string) *Client {
	c := &Client{
		host:   host,
		user:   user,
		port:   DefaultPort,
		tout:   defaultTimeout,
		auth:   make([]ssh.AuthMethod, 0),
		closed: new(atomic.Bool),
	}
	c.closed.Store(false)
	return c
}

// WithPort sets the port for the SSH connection.
func (c *Client) WithPort(port int) *Client {
	c.port = port
	return c
}

// WithTimeout sets the dial timeout for the SSH connection.
func (c *Client) WithTimeout(tout time.Duration) *Client {
	c.tout = tout
	return c
}

// WithVerbose enables logging of SSH operations.
func (c *Client) WithVerbose(v bool) *Client {
	c.verbose = v
	return c
}

func (c *Client) verbLn(format string, args ...any) {
	if !c.verbose {
		return
	}
	log.Printf(c.String()+"> "+format+"\n", args...)
}

// Connect establishes the SSH connection. It is a no-op when already
// connected.
func (c *Client) Connect() error {
	if c.conn != nil {
		return nil
	}

	config := &ssh.ClientConfig{
		User:            c.user,
		Auth:            c.auth,
		Timeout:         c.tout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		BannerCallback:  ssh.BannerDisplayStderr(),
	}
	config.SetDefaults()

	c.verbLn("[connect] connecting...")

	var err error
	if c.client, err = ssh.Dial("tcp", fmt.Sprintf("%s:%d", c.host, c.port), config); err != nil {
		return fmt.Errorf("connecting to %s@%s:%d: %w", c.user, c.host, c.port, err)
	}
	c.conn = c.client.Conn
	c.closed.Store(false)

	c.verbLn("[connect] connected")

	return nil
}

// Closed returns true if the SSH connection is closed or was never opened.
func (c *Client) Closed() bool {
	return c.closed.Load() || c.conn == nil && c.client == nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	c.closed.Store(true)
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	if err != nil {
		c.verbLn("[close] error closing SSH connection: %v", err)
	}
	return err
}
