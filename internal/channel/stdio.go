package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"seekbot/internal/domain"
)

// Stdio implements domain.Channel as an interactive terminal session. One
// process serves one user; options are printed as selectable command lines.
type Stdio struct {
	userID string
	in     io.Reader
	out    io.Writer
	bus    domain.MessageBus
	logger *slog.Logger

	thinkMu   sync.Mutex
	thinking  bool
	thinkStop chan struct{}
}

type StdioConfig struct {
	UserID string // defaults to "terminal"
	In     io.Reader
	Out    io.Writer
	Logger *slog.Logger
}

func NewStdio(cfg StdioConfig) *Stdio {
	if cfg.UserID == "" {
		cfg.UserID = "terminal"
	}
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Stdio{
		userID: cfg.UserID,
		in:     cfg.In,
		out:    cfg.Out,
		logger: cfg.Logger,
	}
}

func (c *Stdio) Name() string { return "stdio" }

// Start runs the read-publish loop until EOF, /quit, or ctx cancellation.
func (c *Stdio) Start(ctx context.Context, bus domain.MessageBus) error {
	c.bus = bus

	bus.OnOutbound("stdio", func(msg domain.Message) {
		c.stopThinking()
		c.printResponse(msg)
		fmt.Fprint(c.out, "You> ")
	})

	fmt.Fprintln(c.out, "Ask a question, pick an option by pasting its command, /quit to exit.")
	fmt.Fprint(c.out, "You> ")

	scanner := bufio.NewScanner(c.in)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stdio channel stopping")
			return nil
		case line, ok := <-lines:
			if !ok {
				return scanner.Err()
			}
			line = strings.TrimSpace(line)
			if line == "" {
				fmt.Fprint(c.out, "You> ")
				continue
			}
			if line == "/quit" || line == "/exit" || line == "/q" {
				c.logger.Info("user requested quit")
				return nil
			}
			c.startThinking()
			c.bus.Publish(domain.NewInbound("stdio", c.userID, line))
		}
	}
}

func (c *Stdio) printResponse(msg domain.Message) {
	fmt.Fprintf(c.out, "\r%s\n", msg.Response)
	for _, opt := range msg.Info.Options {
		fmt.Fprintf(c.out, "  %s | %s\n", opt.Command, opt.Title)
	}
}

func (c *Stdio) startThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinking {
		return
	}
	c.thinking = true
	c.thinkStop = make(chan struct{})
	go func(stop chan struct{}) {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(c.out, "\r%s Thinking...", frames[i%len(frames)])
				i++
			}
		}
	}(c.thinkStop)
}

func (c *Stdio) stopThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if !c.thinking {
		return
	}
	c.thinking = false
	close(c.thinkStop)
}

// Stop is a no-op; the session ends when Start returns.
func (c *Stdio) Stop() error { return nil }
