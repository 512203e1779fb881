package simulator

import (
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
)

type motion int

const (
	motionOpen  motion = iota // rise, hold, close
	motionHold                // rise, keep up
	motionClose               // close from wherever the door is
)

// TriggerSensor simulates a pet at a sensor ("inside" or "outside"). The
// door opens only when powered and the sensor is enabled; a door already
// holding restarts its hold time. It reports whether the trigger was
// accepted.
func (s *Server) TriggerSensor(zone string) bool {
	s.mu.Lock()
	accepted := s.state.Power && s.state.zoneEnabled(zone)
	s.mu.Unlock()

	if !accepted {
		s.logger.Debug("sensor trigger ignored", "zone", zone)
		return false
	}
	s.open()
	return true
}

// SimulateObstruction reports an obstruction. While closing with
// auto-retract enabled the door counts a retract and opens again. It
// reports whether the door retracted.
func (s *Server) SimulateObstruction() bool {
	s.mu.Lock()
	retract := isClosing(s.state.DoorStatus) && s.state.AutoRetract
	if retract {
		s.state.TotalAutoRetracts++
	}
	s.mu.Unlock()

	if retract {
		s.startMotion(motionOpen)
	}
	return retract
}

// open starts an open cycle, or extends the hold of a door already open.
func (s *Server) open() {
	s.mu.Lock()
	status := s.state.DoorStatus
	s.mu.Unlock()

	switch status {
	case protocol.DoorHolding:
		select {
		case s.retrigger <- struct{}{}:
		default:
		}
	case protocol.DoorRising, protocol.DoorKeepUp:
	default:
		s.startMotion(motionOpen)
	}
}

// startMotion cancels any movement in progress and starts m.
func (s *Server) startMotion(m motion) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.stopMotion != nil {
		close(s.stopMotion)
	}
	stop := make(chan struct{})
	s.stopMotion = stop
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(m, stop)
}

func (s *Server) run(m motion, stop <-chan struct{}) {
	defer s.wg.Done()

	switch m {
	case motionOpen:
		if !s.rise(stop) {
			return
		}
		if !s.setStatus(stop, protocol.DoorHolding) || !s.hold(stop) {
			return
		}
		s.close(stop)
	case motionHold:
		if !s.rise(stop) {
			return
		}
		s.setStatus(stop, protocol.DoorKeepUp)
	case motionClose:
		s.close(stop)
	}
}

// rise lifts the door unless it is already up.
func (s *Server) rise(stop <-chan struct{}) bool {
	switch s.status() {
	case protocol.DoorHolding, protocol.DoorKeepUp:
		return true
	}
	return s.setStatus(stop, protocol.DoorRising) && sleep(s.timing.Rise, stop)
}

// hold waits out the hold time. A retrigger restarts it and a pet in the
// doorway extends it.
func (s *Server) hold(stop <-chan struct{}) bool {
	// Drop a retrigger left over from an earlier cycle.
	select {
	case <-s.retrigger:
	default:
	}

	for {
		s.mu.Lock()
		d := s.state.holdDuration()
		s.mu.Unlock()

		t := time.NewTimer(d)
		select {
		case <-stop:
			t.Stop()
			return false
		case <-s.retrigger:
			t.Stop()
			continue
		case <-t.C:
		}

		s.mu.Lock()
		pet := s.state.PetInDoorway
		s.mu.Unlock()
		if !pet {
			return true
		}
	}
}

func (s *Server) close(stop <-chan struct{}) {
	phases := []struct {
		status string
		d      time.Duration
	}{
		{protocol.DoorSlowing, s.timing.Slowing},
		{protocol.DoorClosingTopOpen, s.timing.ClosingTop},
		{protocol.DoorClosingMidOpen, s.timing.ClosingMid},
	}
	for _, p := range phases {
		if !s.setStatus(stop, p.status) || !sleep(p.d, stop) {
			return
		}
	}

	if s.setStatus(stop, protocol.DoorClosed) {
		s.mu.Lock()
		s.state.TotalOpenCycles++
		s.mu.Unlock()
	}
}

func sleep(d time.Duration, stop <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	}
}

func (s *Server) status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DoorStatus
}

// setStatus records a new door status and broadcasts it. It returns false,
// changing nothing, when the movement owning stop has been superseded.
func (s *Server) setStatus(stop <-chan struct{}, status string) bool {
	s.mu.Lock()
	if s.stopMotion != stop {
		s.mu.Unlock()
		return false
	}
	s.state.DoorStatus = status
	s.mu.Unlock()

	s.logger.Debug("door status", "status", status)
	s.broadcast(s.statusFrame())
	return true
}

func (s *Server) statusFrame() map[string]any {
	return request{}.reply(protocol.CmdDoorStatus, map[string]any{protocol.FieldDoorStatus: s.status()})
}
