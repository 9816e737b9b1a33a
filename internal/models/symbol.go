package models

import (
	"errors"
	"strings"
)

// Symbol is a tradable instrument with its own independent order book.
type Symbol struct {
	Name     string `json:"name"`
	TickSize int64  `json:"tick_size"`
}

func (s *Symbol) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("symbol name is required")
	}
	if len(s.Name) > 20 {
		return errors.New("symbol name must be 20 characters or less")
	}
	if s.TickSize <= 0 {
		return errors.New("tick size must be greater than 0")
	}
	return nil
}
