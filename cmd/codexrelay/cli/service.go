package cli

import (
	"fmt"

	"github.com/majorcontext/codexrelay/internal/command"
	"github.com/majorcontext/codexrelay/internal/store"
	"github.com/majorcontext/codexrelay/internal/upstream"
)

// newService builds a command.Service rooted at the default account store.
func newService() (*command.Service, error) {
	st, err := store.New()
	if err != nil {
		return nil, fmt.Errorf("opening account store: %w", err)
	}
	return command.New(st, upstream.NewCaller(st)), nil
}
