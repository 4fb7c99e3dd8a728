package ssh

import (
	"fmt"
	"io"
	"strings"
)

// ReadFile reads a file from the remote host and returns its contents.
func (c *Client) ReadFile(path string) ([]byte, error) {
	if c.Closed() {
		return nil, io.ErrClosedPipe
	}

	sesh, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	defer func() {
		_ = sesh.Close()
	}()

	cmd := "cat " + shellQuote(path)
	c.verbLn("[io] %s", cmd)

	data, err := sesh.Output(cmd)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// FindBinaries lists files under dir on the remote host matching the given
// filename extensions (compared case-insensitively, e.g. ".exe").
func (c *Client) FindBinaries(dir string, exts []string) ([]string, error) {
	if c.Closed() {
		return nil, io.ErrClosedPipe
	}

	sesh, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	defer func() {
		_ = sesh.Close()
	}()

	var sb strings.Builder
	sb.WriteString("find " + shellQuote(dir) + " -type f \\( ")
	for i, ext := range exts {
		if i > 0 {
			sb.WriteString(" -o ")
		}
		sb.WriteString("-iname " + shellQuote("*"+ext))
	}
	sb.WriteString(" \\)")

	cmd := sb.String()
	c.verbLn("[io] %s", cmd)

	out, err := sesh.Output(cmd)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// shellQuote single-quotes s for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
