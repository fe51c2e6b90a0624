package service

import "context"

// Notifier delivers a human-readable event message to an out-of-band channel
// (Telegram in production).  Calls are one-way and may fail silently; the
// scan-processing path never waits on or fails because of a notification.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// ReaderActivator tells a remote reader to enter enrollment mode for an
// identity after StartSession succeeds.  Failure never fails StartSession.
type ReaderActivator interface {
	EnterEnrollMode(ctx context.Context, identityID string) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) {}

type NopActivator struct{}

func (NopActivator) EnterEnrollMode(context.Context, string) error { return nil }
