// Package monitoring serves the state of a running emulation over HTTP.
//
// The server never touches the simulation directly. It reads status
// snapshots that the driver publishes at every bus-cycle boundary.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/wbsim/driver"
	"github.com/sarchlab/wbsim/sim/id"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// A StatusSource provides the latest published run status. It must be safe
// to call from the server goroutines.
type StatusSource interface {
	Status() driver.Status
}

// A SnapshotFunc returns a value that describes a component. The value is
// serialized right away and is not retained.
type SnapshotFunc func() any

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation.
type Monitor struct {
	portNumber  int
	openBrowser bool
	profileTime time.Duration
	idGenerator id.IDGenerator

	source StatusSource

	componentsLock sync.Mutex
	components     map[string]SnapshotFunc

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	cycleBar         *ProgressBar

	listener net.Listener
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		profileTime: time.Second,
		idGenerator: id.NewIDGenerator(),
		components:  make(map[string]SnapshotFunc),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes the monitor open its address in a browser once the
// server is up.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithProfileTime sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileTime(d time.Duration) *Monitor {
	m.profileTime = d
	return m
}

// RegisterStatusSource sets where the run status comes from. It also creates
// the progress bar that follows the bus-cycle counter.
func (m *Monitor) RegisterStatusSource(s StatusSource) {
	m.source = s

	status := s.Status()
	m.cycleBar = m.CreateProgressBar("Bus cycles", status.RunCycles)
}

// RegisterComponent registers a component to be inspected by name.
func (m *Monitor) RegisterComponent(name string, snapshot SnapshotFunc) {
	m.componentsLock.Lock()
	defer m.componentsLock.Unlock()

	if _, found := m.components[name]; found {
		log.Panicf("component %s already registered", name)
	}

	m.components[name] = snapshot
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.idGenerator.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the monitoring API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://localhost:%d", port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := http.Serve(listener, m.Handler())
		if err != nil && !isClosedErr(err) {
			dieOnErr(err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url + "/api/status"); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}

	return port
}

// StopServer closes the listener opened by StartServer.
func (m *Monitor) StopServer() error {
	if m.listener == nil {
		return nil
	}

	return m.listener.Close()
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	if m.source == nil {
		http.Error(w, "No simulation registered", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, m.source.Status())
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	m.componentsLock.Lock()
	names := make([]string, 0, len(m.components))
	for name := range m.components {
		names = append(names, name)
	}
	m.componentsLock.Unlock()

	sort.Strings(names)

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m.componentsLock.Lock()
	snapshot, found := m.components[name]
	m.componentsLock.Unlock()

	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Component not found"))
		dieOnErr(err)

		return
	}

	component := snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	if m.source != nil && m.cycleBar != nil {
		status := m.source.Status()
		m.cycleBar.SetTotal(status.RunCycles)
		if status.Cycle > 0 {
			m.cycleBar.Set(status.Cycle - 1)
		}
	}

	m.progressBarsLock.Lock()
	bars := make([]ProgressBarSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileTime)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
