package ring

import "github.com/infinivision/satgo/telemetry"

func (q *queue) IsEmpty() bool {
	return q.l.Len() == 0
}

func (q *queue) IsFull() bool {
	return q.l.Len() >= q.cap
}

// Push appends a record and reports whether it fit. The caller is
// responsible for switching strategy once Push starts returning
// false; the queue never silently drops.
func (q *queue) Push(r telemetry.ErrorRecord) bool {
	if q.IsFull() {
		return false
	}
	q.l.PushBack(r)
	return true
}

func (q *queue) Pop() (telemetry.ErrorRecord, bool) {
	e := q.l.Front()
	if e == nil {
		return telemetry.ErrorRecord{}, false
	}
	q.l.Remove(e)
	return e.Value.(telemetry.ErrorRecord), true
}

func (q *queue) Len() int {
	return q.l.Len()
}
