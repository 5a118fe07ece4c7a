package runtime

// RestorePoint is the part of the machine state that survives a restart.
// Epoch fields are milliseconds since the Unix epoch; ActualStart is
// milliseconds of day like the rest of State.
type RestorePoint struct {
	Playback    Playback `json:"playback"`
	EventID     string   `json:"eventId"`
	StartedAt   *int64   `json:"startedAt"`
	PausedAt    *int64   `json:"pausedAt"`
	PausedTotal int64    `json:"pausedTotal"`
	AddedTime   int64    `json:"addedTime"`
	ActualStart *int64   `json:"actualStart"`
	Offset      int64    `json:"offset"`
}

// RestorePoint captures the current playback for persistence. Roll mode is
// not captured; a restarted roll is simply rolled again.
func (m *Machine) RestorePoint() RestorePoint {
	s := &m.state
	if s.Mode == ModeRoll || s.EventNow == nil {
		return RestorePoint{Playback: PlaybackStop}
	}
	p := RestorePoint{
		Playback:    s.Timer.Playback,
		EventID:     s.EventNow.ID,
		AddedTime:   s.Timer.AddedTime,
		ActualStart: clonePtr(s.Runtime.ActualStart),
		Offset:      s.Runtime.Offset,
	}
	if s.Timer.Playback.Running() {
		p.StartedAt = ptr(m.startedEpoch)
		p.PausedAt = clonePtr(m.pausedEpoch)
		p.PausedTotal = m.pausedTotal
	}
	return p
}

// Restore re-arms or resumes the event named by p from pl. It reports false
// when p holds nothing to restore or its event is no longer playable; the
// machine then keeps pl as its playlist with nothing loaded.
func (m *Machine) Restore(p RestorePoint, pl Playlist) bool {
	m.playlist = pl
	m.state.Runtime.NumEvents = pl.Len()
	idx := pl.IndexOf(p.EventID)
	if p.Playback == PlaybackStop || p.EventID == "" || idx < 0 {
		return false
	}

	s := &m.state
	m.exitRoll()
	m.load(&pl.Events[idx], pl)
	s.Timer.AddedTime = p.AddedTime
	s.Runtime.Offset = p.Offset
	if p.Playback.Running() && p.StartedAt != nil && p.ActualStart != nil {
		m.startedEpoch = *p.StartedAt
		m.pausedEpoch = clonePtr(p.PausedAt)
		m.pausedTotal = p.PausedTotal
		s.Timer.StartedAt = clonePtr(p.ActualStart)
		s.Runtime.ActualStart = clonePtr(p.ActualStart)
		s.Timer.Playback = p.Playback
		if p.Playback == PlaybackPause && m.pausedEpoch == nil {
			m.pausedEpoch = ptr(m.clock.NowEpochMs())
		}
	}
	epoch, day := m.now()
	m.recompute(epoch, day)
	return true
}
