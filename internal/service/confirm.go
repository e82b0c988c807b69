package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"go-candleprep/internal/common"
)

// Confirmer blocks until the operator lets the run continue.
type Confirmer interface {
	Confirm(ctx context.Context) error
}

// StdinConfirmer prints a prompt and waits for one line on its reader.
type StdinConfirmer struct {
	in     io.Reader
	out    io.Writer
	prompt string
}

func NewStdinConfirmer(in io.Reader, out io.Writer) *StdinConfirmer {
	return &StdinConfirmer{in: in, out: out, prompt: common.ConfirmPrompt}
}

// Confirm returns once a line (or EOF) is read, or when ctx is done.
func (c *StdinConfirmer) Confirm(ctx context.Context) error {
	if _, err := fmt.Fprintln(c.out, c.prompt); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(c.in).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoopConfirmer never waits.
type NoopConfirmer struct{}

func (NoopConfirmer) Confirm(context.Context) error {
	return nil
}
