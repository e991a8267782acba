package sender

import (
	"context"
	"fmt"
	"io"
)

// Console writes replies to w, for running the pipeline from the command line.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) SendText(_ context.Context, _ string, text string) error {
	_, err := fmt.Fprintln(c.w, text)
	return err
}
