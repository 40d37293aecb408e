package analysis

import (
	"github.com/lexicone42/setbreak-sub000/internal/engine"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

// sessionArena holds one long lived engine session per worker for the
// whole run. Sessions move through a buffered channel so a session is only
// ever held by one worker.
type sessionArena struct {
	free     chan engine.Session
	sessions []engine.Session
}

func newSessionArena(eng engine.Engine, cfg engine.Config, size int) (*sessionArena, error) {
	a := &sessionArena{free: make(chan engine.Session, size)}
	for range size {
		s, err := eng.NewSession(cfg)
		if err != nil {
			_ = a.close()
			return nil, errors.New(err).
				Component("analysis").
				Category(errors.CategoryAudioAnalysis).
				Context("operation", "new_session").
				Build()
		}
		a.sessions = append(a.sessions, s)
		a.free <- s
	}
	return a, nil
}

func (a *sessionArena) acquire() engine.Session  { return <-a.free }
func (a *sessionArena) release(s engine.Session) { a.free <- s }

// close closes every session. It must only be called once all workers
// have returned their sessions.
func (a *sessionArena) close() error {
	var errs []error
	for _, s := range a.sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.sessions = nil
	return errors.Join(errs...)
}
