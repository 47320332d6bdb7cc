package account

import (
	"context"
	"time"

	"github.com/tragent/account-engine/internal/model"
	"github.com/tragent/account-engine/internal/store"
)

const saveTimeout = 5 * time.Second

// saver writes states in the background. Its queue holds one state; a
// newer state replaces one not yet written, so a burst of mutations costs
// one write and the last write is always the newest state.
type saver struct {
	persister *store.Persister
	pending   chan *model.AccountState
	done      chan struct{}
}

func newSaver(p *store.Persister) *saver {
	sv := &saver{
		persister: p,
		pending:   make(chan *model.AccountState, 1),
		done:      make(chan struct{}),
	}
	go sv.run()
	return sv
}

func (sv *saver) run() {
	defer close(sv.done)
	for st := range sv.pending {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		sv.persister.Save(ctx, st)
		cancel()
	}
}

// enqueue must be called by one goroutine at a time.
func (sv *saver) enqueue(st *model.AccountState) {
	for {
		select {
		case sv.pending <- st:
			return
		default:
		}
		// Discard the stale state if the writer has not taken it yet.
		select {
		case <-sv.pending:
		default:
		}
	}
}

// close writes whatever is queued and waits for the writer to exit.
func (sv *saver) close() {
	close(sv.pending)
	<-sv.done
}
