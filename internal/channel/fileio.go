package channel

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"seekbot/internal/domain"
)

// Fileio implements domain.Channel for offline batch runs: each input line
// is one turn ("qid<TAB>query"), and each reply is written to the output
// file, either as ranked option rows or as plain answer text.
type Fileio struct {
	inputPath  string
	outputPath string
	format     string // "trec" or "text"
	runID      string
	logger     *slog.Logger

	bus     domain.MessageBus
	replies chan domain.Message
}

type FileioConfig struct {
	InputPath  string
	OutputPath string
	Format     string // defaults to "text"
	RunID      string // tag for trec rows, defaults to "seekbot"
	Logger     *slog.Logger
}

func NewFileio(cfg FileioConfig) *Fileio {
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.RunID == "" {
		cfg.RunID = "seekbot"
	}
	return &Fileio{
		inputPath:  cfg.InputPath,
		outputPath: cfg.OutputPath,
		format:     cfg.Format,
		runID:      cfg.RunID,
		logger:     cfg.Logger,
		replies:    make(chan domain.Message, 1),
	}
}

func (f *Fileio) Name() string { return "fileio" }

// Start processes the whole input file and returns. Turns run one at a
// time: each line is published and its reply awaited before the next.
func (f *Fileio) Start(ctx context.Context, bus domain.MessageBus) error {
	f.bus = bus
	bus.OnOutbound("fileio", func(msg domain.Message) {
		select {
		case f.replies <- msg:
		default:
			f.logger.Warn("dropping unexpected batch reply", "msg_id", msg.Info.ID)
		}
	})

	in, err := os.Open(f.inputPath)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(f.outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	scanner := bufio.NewScanner(in)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		qid, query, ok := strings.Cut(line, "\t")
		if !ok {
			f.logger.Warn("skipping malformed input line", "line", lineNo)
			continue
		}

		f.bus.Publish(domain.NewInbound("fileio", qid, strings.TrimSpace(query)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case reply := <-f.replies:
			if err := f.writeReply(w, qid, reply); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input file: %w", err)
	}

	f.logger.Info("batch run complete", "turns", lineNo, "output", f.outputPath)
	return nil
}

func (f *Fileio) writeReply(w *bufio.Writer, qid string, reply domain.Message) error {
	switch f.format {
	case "trec":
		for rank, opt := range reply.Info.Options {
			docID := strings.TrimSpace(strings.TrimPrefix(opt.Command, domain.CommandPrefix+"get_doc"))
			if _, err := fmt.Fprintf(w, "%s Q0 %s %d %f %s\n",
				qid, docID, rank+1, opt.Score, f.runID); err != nil {
				return err
			}
		}
		return nil
	case "text":
		_, err := fmt.Fprintf(w, "%s\t%s\n", qid, strings.ReplaceAll(reply.Response, "\n", " "))
		return err
	default:
		return fmt.Errorf("unknown output format %q", f.format)
	}
}

func (f *Fileio) Stop() error { return nil }
