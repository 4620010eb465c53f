package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the logging port the client uses. The observability
// logger satisfies it.
type Logger interface {
	LogDebug(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Config configures the bridge client.
type Config struct {
	// Command is the language server command line, e.g.
	// ["pyright-langserver", "--stdio"] or ["gopls"].
	Command []string

	// LanguageID is the LSP languageId sent with didOpen ("python").
	LanguageID string

	// WorkspaceRoot is the absolute workspace directory the server is
	// initialized against. Relative query paths resolve under it.
	WorkspaceRoot string

	Logger Logger // optional
}

// Client talks JSON-RPC 2.0 over stdio to a spawned language-server
// process. One client manages one server for one workspace; calls are
// safe for concurrent use.
type Client struct {
	cfg   Config
	cmd   *exec.Cmd
	stdin io.WriteCloser

	writeMu sync.Mutex
	nextID  atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan *message

	openMu sync.Mutex
	open   map[string]bool

	done chan struct{}
}

// startTimeout bounds the spawn-and-initialize handshake.
const startTimeout = 30 * time.Second

// NewClient constructs a bridge client. Call Start before issuing
// queries and Stop when done.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		pending: make(map[int64]chan *message),
		open:    make(map[string]bool),
		done:    make(chan struct{}),
	}
}

// Start spawns the language server and performs the initialize
// handshake.
func (c *Client) Start(ctx context.Context) error {
	if len(c.cfg.Command) == 0 {
		return fmt.Errorf("no language server command configured")
	}

	c.cmd = exec.Command(c.cfg.Command[0], c.cfg.Command[1:]...)
	c.cmd.Dir = c.cfg.WorkspaceRoot

	stdin, err := c.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	c.stdin = stdin

	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	c.cmd.Stderr = io.Discard

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.cfg.Command[0], err)
	}

	go c.readLoop(bufio.NewReader(stdout))

	ctx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	params := initializeParams{
		ProcessID: os.Getpid(),
		RootURI:   pathToURI(c.cfg.WorkspaceRoot),
		Capabilities: map[string]interface{}{
			"textDocument": map[string]interface{}{
				"definition":     map[string]interface{}{},
				"references":     map[string]interface{}{},
				"documentSymbol": map[string]interface{}{"hierarchicalDocumentSymbolSupport": true},
			},
		},
	}
	if err := c.call(ctx, "initialize", params, nil); err != nil {
		c.kill()
		return fmt.Errorf("initialize: %w", err)
	}
	if err := c.notify("initialized", struct{}{}); err != nil {
		c.kill()
		return fmt.Errorf("initialized: %w", err)
	}

	return nil
}

// Stop shuts the server down, escalating to a kill if it does not exit
// promptly.
func (c *Client) Stop() error {
	if c.cmd == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Best effort: the server may already be gone.
	_ = c.call(ctx, "shutdown", nil, nil)
	_ = c.notify("exit", nil)
	_ = c.stdin.Close()

	waited := make(chan error, 1)
	go func() { waited <- c.cmd.Wait() }()
	select {
	case err := <-waited:
		return err
	case <-ctx.Done():
		c.kill()
		return fmt.Errorf("language server did not exit, killed")
	}
}

func (c *Client) kill() {
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
}

// readLoop dispatches incoming frames until the server's stdout closes.
func (c *Client) readLoop(r *bufio.Reader) {
	defer close(c.done)

	for {
		payload, err := readFrame(r)
		if err != nil {
			return
		}

		var msg message
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.warn("undecodable frame from language server", map[string]interface{}{"error": err.Error()})
			continue
		}

		switch {
		case msg.ID != nil && msg.Method == "":
			c.deliver(&msg)
		case msg.ID != nil:
			// Server-initiated request: acknowledge with a null result
			// so the server never stalls waiting on us.
			c.writeMu.Lock()
			_ = writeFrame(c.stdin, reply{JSONRPC: jsonRPCVersion, ID: *msg.ID})
			c.writeMu.Unlock()
		default:
			c.debug("server notification", map[string]interface{}{"method": msg.Method})
		}
	}
}

func (c *Client) deliver(msg *message) {
	c.pendingMu.Lock()
	ch, ok := c.pending[*msg.ID]
	if ok {
		delete(c.pending, *msg.ID)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- msg
	}
}

// call sends a request and decodes its result into out (which may be
// nil when the result is irrelevant).
func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	id := c.nextID.Add(1)
	ch := make(chan *message, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	req := request{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: params}
	c.writeMu.Lock()
	err := writeFrame(c.stdin, req)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	case <-c.done:
		return fmt.Errorf("%s: language server exited", method)
	case msg := <-ch:
		if msg.Error != nil {
			return fmt.Errorf("%s: server error %d: %s", method, msg.Error.Code, msg.Error.Message)
		}
		if out == nil || len(msg.Result) == 0 || string(msg.Result) == "null" {
			return nil
		}
		if err := json.Unmarshal(msg.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
		return nil
	}
}

func (c *Client) notify(method string, params interface{}) error {
	req := request{JSONRPC: jsonRPCVersion, Method: method, Params: params}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFrame(c.stdin, req)
}

// ensureOpen sends didOpen for the document once per client lifetime.
// Servers only answer queries about documents they have seen.
func (c *Client) ensureOpen(path string) error {
	abs := c.absPath(path)

	c.openMu.Lock()
	defer c.openMu.Unlock()
	if c.open[abs] {
		return nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	err = c.notify("textDocument/didOpen", didOpenParams{
		TextDocument: textDocumentItem{
			URI:        pathToURI(abs),
			LanguageID: c.cfg.LanguageID,
			Version:    1,
			Text:       string(content),
		},
	})
	if err != nil {
		return err
	}

	c.open[abs] = true
	return nil
}

func (c *Client) absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.cfg.WorkspaceRoot, path)
}

func (c *Client) warn(message string, fields map[string]interface{}) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.LogWarning(context.Background(), message, fields)
	}
}

func (c *Client) debug(message string, fields map[string]interface{}) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.LogDebug(context.Background(), message, fields)
	}
}

func pathToURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

func uriToPath(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme != "file" {
		return strings.TrimPrefix(uri, "file://")
	}
	return parsed.Path
}
