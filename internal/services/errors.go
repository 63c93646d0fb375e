package services

import (
	"errors"

	"shakti-shield/internal/utils"
)

var (
	ErrSOSNotFound         = errors.New(utils.ErrSOSNotFound)
	ErrNotSOSOwner         = errors.New("not authorized to access this SOS request")
	ErrSOSNotActive        = errors.New(utils.ErrSOSNotActive)
	ErrTriggerInProgress   = errors.New(utils.ErrTriggerInProgress)
	ErrUserNotFound        = errors.New(utils.ErrUserNotFound)
	ErrContactNotFound     = errors.New(utils.ErrContactNotFound)
	ErrDuplicateContact    = errors.New(utils.ErrDuplicateContact)
	ErrChannelUnconfigured = errors.New("delivery channel not configured")
	ErrDispatcherClosed    = errors.New("dispatcher is shut down")
	ErrDispatcherBusy      = errors.New("dispatcher queue is full")
)
