package scheduler

import "github.com/fmfleet/txmoncore/pkg/models"

// statusWindow is how many recent results device_status inspects
// (spec.md §4.5).
const statusWindow = 10

// onlineMaxFailures is the failure count at or above which the window is
// considered offline; below it, the window is online only if it also holds
// at least one success.
const onlineMaxFailures = 5

// DeviceStatus computes {online, last_seen, error_count} from the last 10
// results for id: online iff fewer than 5 of those 10 failed AND at least
// one succeeded. Unknown devices report offline with a zero LastSeen.
func (s *Scheduler) DeviceStatus(id string) models.DeviceStatus {
	s.mu.Lock()
	d, ok := s.devices[id]
	s.mu.Unlock()

	if !ok {
		return models.DeviceStatus{}
	}

	recent := d.ring.last(statusWindow)

	var (
		failures  int
		successes int
		lastSeen  = d.ring.last(1)
	)

	for _, r := range recent {
		if r.Success {
			successes++
		} else {
			failures++
		}
	}

	status := models.DeviceStatus{ErrorCount: failures}
	if len(lastSeen) > 0 {
		status.LastSeen = lastSeen[0].Timestamp
	}

	status.Online = failures < onlineMaxFailures && successes > 0

	return status
}
