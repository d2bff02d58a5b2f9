package dispatch

import "context"

// Sync runs work on the calling goroutine.
var Sync Dispatcher = NewSync("sync")

// SyncDispatcher runs work inline, before Execute returns.
type SyncDispatcher struct {
	name string
}

// NewSync returns an inline dispatcher with the given name.
func NewSync(name string) *SyncDispatcher {
	return &SyncDispatcher{name: name}
}

func (s *SyncDispatcher) Name() string { return s.name }

func (s *SyncDispatcher) Execute(ctx context.Context, work func(context.Context)) error {
	work(ctx)
	return nil
}
