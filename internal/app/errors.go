package service

import "github.com/okian/camctl/internal/domain/agenda"

// ErrUnknownAgent is returned for agents missing from the configuration.
var ErrUnknownAgent = agenda.ErrUnknownAgent
