package driver

import (
	"log"

	"github.com/sarchlab/wbsim/datarecording"
)

// A HeartbeatSink receives the periodic heartbeat and the run milestones
// (reset, release, end). It only observes.
type HeartbeatSink interface {
	Heartbeat(s Status)
	Event(cycle uint64, msg string)
}

// LogHeartbeat writes heartbeats and events as log lines.
type LogHeartbeat struct {
	Logger *log.Logger
}

// Heartbeat logs the cycle.
func (h LogHeartbeat) Heartbeat(s Status) {
	h.Logger.Printf("%08d ...tick...", s.Cycle)
}

// Event logs the message with its cycle.
func (h LogHeartbeat) Event(cycle uint64, msg string) {
	h.Logger.Printf("%08d %s", cycle, msg)
}

// HeartbeatTable is the table RecordingHeartbeat writes.
const HeartbeatTable = "heartbeats"

// HeartbeatEntry is one row of the heartbeat table.
type HeartbeatEntry struct {
	Cycle     uint64
	Tick      uint64
	Message   string
	Reads     uint64
	Writes    uint64
	Mapped    int
	Responder string
}

// RecordingHeartbeat stores heartbeats and events into a data recorder.
type RecordingHeartbeat struct {
	recorder datarecording.DataRecorder
}

// NewRecordingHeartbeat creates the heartbeat table and returns the sink.
func NewRecordingHeartbeat(
	recorder datarecording.DataRecorder,
) *RecordingHeartbeat {
	recorder.CreateTable(HeartbeatTable, HeartbeatEntry{})

	return &RecordingHeartbeat{recorder: recorder}
}

// Heartbeat records the status.
func (h *RecordingHeartbeat) Heartbeat(s Status) {
	h.recorder.InsertData(HeartbeatTable, HeartbeatEntry{
		Cycle:     s.Cycle,
		Tick:      s.Tick,
		Message:   "heartbeat",
		Reads:     s.Reads,
		Writes:    s.Writes,
		Mapped:    s.MappedWords,
		Responder: s.ResponderState,
	})
}

// Event records the message.
func (h *RecordingHeartbeat) Event(cycle uint64, msg string) {
	h.recorder.InsertData(HeartbeatTable, HeartbeatEntry{
		Cycle:   cycle,
		Message: msg,
	})
}

type multiHeartbeat []HeartbeatSink

func (m multiHeartbeat) Heartbeat(s Status) {
	for _, h := range m {
		h.Heartbeat(s)
	}
}

func (m multiHeartbeat) Event(cycle uint64, msg string) {
	for _, h := range m {
		h.Event(cycle, msg)
	}
}
