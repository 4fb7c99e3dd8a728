package ssh

import (
	"fmt"
	"log"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/term"
)

// WithAuth adds authentication methods to the client.
func (c *Client) WithAuth(auth ...ssh.AuthMethod) *Client {
	c.auth = append(c.auth, auth...)
	return c
}

// WithPassword adds password authentication to the client.
func (c *Client) WithPassword(password string) *Client {
	c.auth = append(c.auth, ssh.Password(password))
	return c
}

// WithPromptedPassword reads a password from the terminal (without echo)
// and adds it as password authentication.
func (c *Client) WithPromptedPassword() *Client {
	fmt.Fprintf(os.Stderr, "%s@%s password: ", c.user, c.host)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Printf("(!) could not read password: %v", err)
		return c
	}
	return c.WithPassword(string(pw))
}

// WithKey parses an SSH private key to extract signers for authentication.
func (c *Client) WithKey(key []byte) *Client {
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		log.Printf("(!) could not parse private key: %v", err)
		return c
	}
	c.auth = append(c.auth, ssh.PublicKeys(signer))
	return c
}

// WithKeyFile reads an SSH private key from path for authentication.
func (c *Client) WithKeyFile(path string) *Client {
	dat, err := os.ReadFile(path)
	if err != nil {
		log.Printf("(!) could not read key file: %v", err)
		return c
	}
	return c.WithKey(dat)
}

// WithAgent adds all available signers from an SSH agent for
// authentication. (*nix)
func (c *Client) WithAgent() *Client {
	agentURI := os.Getenv("SSH_AUTH_SOCK")
	conn, err := net.Dial("unix", agentURI)
	if err != nil {
		log.Printf("(!) could not reach SSH agent: %v", err)
		return c
	}
	defer func() {
		_ = conn.Close()
	}()

	sshAgent := agent.NewClient(conn)
	signers, err := sshAgent.Signers()
	if err != nil {
		log.Printf("(!) could not get signers from SSH agent: %v", err)
		return c
	}

	c.auth = append(c.auth, ssh.PublicKeys(signers...))

	return c
}
