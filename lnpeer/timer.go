package lnpeer

// armCommitTimer schedules trigger_commit to fire after the configured
// batching window, unless one is already pending (spec.md §4.6: a one-shot
// timer; multiple staged changes within the window batch into a single
// commit, and a pending timer is idempotent — §8 property 9). It also arms
// the slower keepalive backstop below, so every call site that stages a
// change gets both mechanisms for free.
func (e *ChannelEngine) armCommitTimer() {
	if !e.commitTimerPending {
		e.commitTimerPending = true
		e.commitTimer = e.clock.After(e.cfg.BatchWindow, func() {
			select {
			case e.timerSignal <- struct{}{}:
			default:
			}
		})
	}
	e.armKeepaliveTimer()
}

// fireCommitTimer runs on the Run loop goroutine when the commit timer
// fires: it clears the pending flag before calling triggerCommit so a
// change staged during the call re-arms a fresh timer rather than being
// folded silently into the commit already in flight.
func (e *ChannelEngine) fireCommitTimer() {
	e.commitTimerPending = false
	if err := e.triggerCommit(); err != nil {
		log.Errorf("channel %v: commit timer: %v", e.chanID, err)
	}
}

// armKeepaliveTimer schedules a second, longer-horizon trigger_commit on
// config.KeepaliveWindow, armed once per staging-dirty period and, like the
// batch timer above, not rearmed by further changes while it is pending
// (spec.md §4.6). It exists as a backstop: if the batch timer's own
// trigger_commit left the chain unmoved — for instance because the
// counterparty's revocation window was exhausted when it fired — this
// fires once more later and tries again.
func (e *ChannelEngine) armKeepaliveTimer() {
	if e.keepaliveTimerPending {
		return
	}
	e.keepaliveTimerPending = true
	e.keepaliveTimer = e.clock.After(e.cfg.KeepaliveWindow, func() {
		select {
		case e.keepaliveSignal <- struct{}{}:
		default:
		}
	})
}

// fireKeepaliveTimer is fireCommitTimer's counterpart for the keepalive
// backstop timer.
func (e *ChannelEngine) fireKeepaliveTimer() {
	e.keepaliveTimerPending = false
	if err := e.triggerCommit(); err != nil {
		log.Errorf("channel %v: keepalive timer: %v", e.chanID, err)
	}
}
