package board

import "github.com/vctrubio/adrenalink-sub005/internal/models"

// Sync reconciles the queue against an authoritative store snapshot. It is
// the board's three-way merge: server truth replaces the confirmed set
// wholesale, pending creations are matched off against new server rows, and
// pending deletions that the server no longer knows are retired.
//
// Ids in mutatingIDs have a local timing edit still in flight; for those only
// status and location are taken from the snapshot so a racing poll cannot
// clobber the edit before its own round-trip lands.
//
// Sync never fails and is idempotent: anything it cannot resolve simply stays
// pending until a later snapshot resolves it. The returned slice lists every
// id whose pending state was confirmed this pass, including store-assigned
// ids for creations, so callers can retire spinners keyed by either id.
func (q *TeacherQueue) Sync(snapshot []models.Event, mutatingIDs map[string]bool) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	confirmed := make([]string, 0)
	inSnapshot := make(map[string]bool, len(snapshot))

	for i := range snapshot {
		record := snapshot[i]
		inSnapshot[record.ID] = true

		node, ok := q.nodes[record.ID]
		if !ok {
			node = q.matchPendingCreateLocked(record)
			if node != nil {
				// Store assigned a fresh id on creation; retire the
				// placeholder under both ids.
				confirmed = append(confirmed, node.Event.ID, record.ID)
				delete(q.nodes, node.Event.ID)
				q.nodes[record.ID] = node
				*node.Event = record
				node.state = StateConfirmed
				continue
			}
			ev := record
			q.nodes[record.ID] = q.newNodeLocked(&ev, StateConfirmed)
			continue
		}

		// Mutate the existing node in place so holders of the pointer keep
		// observing current state. The mutation guard keeps locally edited
		// timing intact.
		if mutatingIDs[record.ID] {
			node.Event.Status = record.Status
			node.Event.Location = record.Location
		} else {
			*node.Event = record
		}
		if node.state == StatePendingCreate {
			node.state = StateConfirmed
			confirmed = append(confirmed, record.ID)
		}
	}

	// Server truth is replace-not-merge: confirmed rows missing from the
	// snapshot were deleted server-side, and pending deletions missing from
	// it just got acknowledged.
	for id, node := range q.nodes {
		if inSnapshot[id] {
			continue
		}
		switch node.state {
		case StateConfirmed:
			delete(q.nodes, id)
		case StatePendingDelete:
			delete(q.nodes, id)
			confirmed = append(confirmed, id)
		}
	}

	q.rebuildLocked()
	return confirmed
}

// matchPendingCreateLocked resolves a server row with an unknown id against
// pending creations by business key: same lesson, same start truncated to the
// minute. Best effort; two pending lessons in the same minute would be
// ambiguous, so the first match in adoption order wins.
func (q *TeacherQueue) matchPendingCreateLocked(record models.Event) *Node {
	var match *Node
	for _, node := range q.nodes {
		if node.state != StatePendingCreate {
			continue
		}
		if node.Event.LessonID != record.LessonID || !minuteEqual(node.Event.Date, record.Date) {
			continue
		}
		if match == nil || node.seq < match.seq {
			match = node
		}
	}
	return match
}
