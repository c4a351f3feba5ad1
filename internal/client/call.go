package client

import (
	"context"

	"go.uber.org/zap"
)

type callState int

const (
	callIdle callState = iota
	callSent
	callUnauthorized
	callRefreshing
	callResent
	callDone
)

var callStateNames = [...]string{"idle", "sent", "unauthorized", "refreshing", "resent", "done"}

func (c callState) String() string { return callStateNames[c] }

// call is one API request under the refresh-once policy.
type call struct {
	method, path string
	in, out      any

	state callState
	err   error
	trace []callState
}

func (c *call) to(next callState) {
	c.state = next
	c.trace = append(c.trace, next)
}

// Do sends a request and decodes the envelope data into out. A 401 triggers
// at most one refresh followed by one replay; a 401 from the refresh endpoint
// itself is never retried. A failed refresh leaves the session Anonymous and
// clears the stored cookie only when the server rejected it.
func (s *Session) Do(ctx context.Context, method, path string, in, out any) error {
	c := &call{method: method, path: path, in: in, out: out, trace: []callState{callIdle}}
	s.run(ctx, c)
	return c.err
}

func (s *Session) run(ctx context.Context, c *call) {
	for c.state != callDone {
		switch c.state {
		case callIdle:
			c.err = s.send(ctx, c.method, c.path, c.in, c.out)
			c.to(callSent)
		case callSent:
			if IsUnauthorized(c.err) && c.path != refreshPath {
				c.to(callUnauthorized)
				continue
			}
			c.to(callDone)
		case callUnauthorized:
			if ctx.Err() != nil {
				c.err = ctx.Err()
				c.to(callDone)
				continue
			}
			c.to(callRefreshing)
		case callRefreshing:
			if err := s.refresh(ctx); err != nil {
				s.log.Debug("refresh failed", zap.String("path", c.path), zap.Error(err))
				s.lose(err)
				c.err = err
				c.to(callDone)
				continue
			}
			c.err = s.send(ctx, c.method, c.path, c.in, c.out)
			c.to(callResent)
		case callResent:
			c.to(callDone)
		}
	}
}
