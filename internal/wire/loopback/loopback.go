// Package loopback provides in-memory wire.Service implementations
// for both variants. The real serial link and block-driver glue are
// out of scope per spec.md §1 ("the block-driver glue that moves raw
// bytes to and from a serial port"); Loopback stands in for it so the
// unified dispatcher and async engine can be exercised and tested
// without real hardware, the way rclone's fstest/mockobject stands in
// for a real backend. Every method completes synchronously (the
// callback fires before the method returns) — a deliberately simple
// stand-in, since the interesting asynchrony in this repo is in
// unified and async, not in this fake.
package loopback

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/thoukydides/riscos-psifs-sub001/internal/perr"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
)

type file struct {
	info wire.Info
	data []byte
}

type openHandle struct {
	path   string
	pos    int64
	isDir  bool
	dirPos int
}

type task struct {
	id      uint32
	path    string
	args    string
	running bool
}

// Loopback is an in-memory filing system plus a fake task-control
// service, implementing wire.Service for either variant.
type Loopback struct {
	mu             sync.Mutex
	variant        wire.Variant
	connected      bool
	hasTaskControl bool
	files          map[string]*file // keyed by remote-style path ("\" separated)
	handles        map[int32]*openHandle
	nextHandle     int32
	tasks          map[uint32]*task
	nextTaskID     uint32
	volumes        map[byte]wire.Volume
	machine        wire.MachineInfo
	startHook      func(path, args string) (bool, error)
}

// New creates an empty, connected Loopback of the given variant with
// full task control.
func New(variant wire.Variant) *Loopback {
	return &Loopback{
		variant:        variant,
		connected:      true,
		hasTaskControl: true,
		files:          make(map[string]*file),
		handles:        make(map[int32]*openHandle),
		tasks:          make(map[uint32]*task),
		volumes:        make(map[byte]wire.Volume),
		machine: wire.MachineInfo{
			Machine:  variant.String(),
			HomeTime: time.Now(),
		},
	}
}

// SetConnected lets tests simulate the link dropping.
func (l *Loopback) SetConnected(c bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = c
}

// SetHasTaskControl lets tests simulate a "partially connected" link
// (file service only).
func (l *Loopback) SetHasTaskControl(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasTaskControl = v
}

// PutFile seeds the in-memory filing system with a file, for test
// setup.
func (l *Loopback) PutFile(remotePath string, data []byte, attr wire.Attr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	l.files[remotePath] = &file{
		info: wire.Info{Size: int64(len(cp)), ModTime: time.Now(), Attr: attr},
		data: cp,
	}
}

// FileData returns the current bytes stored at remotePath, for test
// assertions after a write completes.
func (l *Loopback) FileData(remotePath string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[remotePath]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(f.data))
	copy(cp, f.data)
	return cp, true
}

// FileModTime returns the current modification time stored at
// remotePath, for test assertions after a stamp completes.
func (l *Loopback) FileModTime(remotePath string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[remotePath]
	if !ok {
		return time.Time{}, false
	}
	return f.info.ModTime, true
}

// PutDrive seeds a drive-query reply for drive letter d.
func (l *Loopback) PutDrive(d byte, v wire.Volume) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.volumes[d] = v
}

// AddTask seeds a running task for enumerate-tasks/stop/start tests.
func (l *Loopback) AddTask(path, args string) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextTaskID++
	id := l.nextTaskID
	l.tasks[id] = &task{id: id, path: path, args: args, running: true}
	return id
}

func (l *Loopback) Variant() wire.Variant { return l.variant }

func (l *Loopback) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *Loopback) HasTaskControl() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected && l.hasTaskControl
}

func (l *Loopback) checkConnected() error {
	if !l.connected {
		return perr.New(perr.KindNoRemoteService, "no remote service")
	}
	return nil
}

func (l *Loopback) OpenDir(_ context.Context, path string, cb wire.Callback[int32]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkConnected(); err != nil {
		cb(0, err)
		return
	}
	l.nextHandle++
	h := l.nextHandle
	l.handles[h] = &openHandle{path: path, isDir: true}
	cb(h, nil)
}

func (l *Loopback) ReadDir(_ context.Context, handle int32, maxEntries int, cb wire.Callback[[]wire.Entry]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[handle]
	if !ok || !h.isDir {
		cb(nil, perr.New(perr.KindBadHandle, "bad directory handle"))
		return
	}
	prefix := h.path
	if !strings.HasSuffix(prefix, "\\") {
		prefix += "\\"
	}
	var names []string
	for p := range l.files {
		if strings.HasPrefix(p, prefix) && !strings.Contains(strings.TrimPrefix(p, prefix), "\\") {
			names = append(names, p)
		}
	}
	sort.Strings(names)
	start := h.dirPos
	end := start + maxEntries
	if end > len(names) {
		end = len(names)
	}
	var entries []wire.Entry
	for _, p := range names[start:end] {
		f := l.files[p]
		entries = append(entries, wire.Entry{Name: leaf(p), Info: f.info})
	}
	h.dirPos = end
	cb(entries, nil)
}

func (l *Loopback) CloseDir(_ context.Context, handle int32, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handles, handle)
	cb(struct{}{}, nil)
}

func (l *Loopback) Open(_ context.Context, path string, mode wire.OpenMode, cb wire.Callback[int32]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkConnected(); err != nil {
		cb(0, err)
		return
	}
	f, exists := l.files[path]
	if mode == wire.ModeIn && !exists {
		cb(0, perr.New(perr.KindBadName, "file not found: %s", path))
		return
	}
	if mode == wire.ModeOut || (!exists && mode == wire.ModeUpdate) {
		f = &file{info: wire.Info{ModTime: time.Now()}}
		l.files[path] = f
	}
	l.nextHandle++
	h := l.nextHandle
	l.handles[h] = &openHandle{path: path}
	cb(h, nil)
}

func (l *Loopback) Close(_ context.Context, handle int32, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handles, handle)
	cb(struct{}{}, nil)
}

func (l *Loopback) Read(_ context.Context, handle int32, length int, cb wire.Callback[[]byte]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[handle]
	if !ok {
		cb(nil, perr.New(perr.KindBadHandle, "bad file handle"))
		return
	}
	f := l.files[h.path]
	if h.pos >= int64(len(f.data)) {
		cb(nil, nil)
		return
	}
	end := h.pos + int64(length)
	if end > int64(len(f.data)) {
		end = int64(len(f.data))
	}
	out := f.data[h.pos:end]
	h.pos = end
	cb(out, nil)
}

func (l *Loopback) Write(_ context.Context, handle int32, data []byte, cb wire.Callback[int]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[handle]
	if !ok {
		cb(0, perr.New(perr.KindBadHandle, "bad file handle"))
		return
	}
	f := l.files[h.path]
	needed := h.pos + int64(len(data))
	if needed > int64(len(f.data)) {
		grown := make([]byte, needed)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[h.pos:], data)
	h.pos += int64(len(data))
	f.info.Size = int64(len(f.data))
	cb(len(data), nil)
}

func (l *Loopback) Zero(_ context.Context, handle int32, length int, cb wire.Callback[int]) {
	l.Write(context.Background(), handle, make([]byte, length), cb)
}

func (l *Loopback) Seek(_ context.Context, handle int32, offset int64, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[handle]
	if !ok {
		cb(struct{}{}, perr.New(perr.KindBadHandle, "bad file handle"))
		return
	}
	h.pos = offset
	cb(struct{}{}, nil)
}

func (l *Loopback) SetExtent(_ context.Context, handle int32, size int64, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[handle]
	if !ok {
		cb(struct{}{}, perr.New(perr.KindBadHandle, "bad file handle"))
		return
	}
	f := l.files[h.path]
	grown := make([]byte, size)
	copy(grown, f.data)
	f.data = grown
	f.info.Size = size
	cb(struct{}{}, nil)
}

func (l *Loopback) Flush(_ context.Context, _ int32, cb wire.Callback[struct{}]) {
	cb(struct{}{}, nil)
}

func (l *Loopback) Info(_ context.Context, path string, cb wire.Callback[wire.Info]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[path]
	if ok {
		cb(f.info, nil)
		return
	}
	prefix := path
	if !strings.HasSuffix(prefix, "\\") {
		prefix += "\\"
	}
	for p := range l.files {
		if strings.HasPrefix(p, prefix) {
			cb(wire.Info{IsDir: true, Attr: wire.AttrDir}, nil)
			return
		}
	}
	cb(wire.Info{}, perr.New(perr.KindBadName, "not found: %s", path))
}

func (l *Loopback) SetAttr(_ context.Context, path string, attr wire.Attr, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[path]
	if !ok {
		cb(struct{}{}, perr.New(perr.KindBadName, "not found: %s", path))
		return
	}
	f.info.Attr = attr
	cb(struct{}{}, nil)
}

func (l *Loopback) Stamp(_ context.Context, path string, t time.Time, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[path]
	if !ok {
		cb(struct{}{}, perr.New(perr.KindBadName, "not found: %s", path))
		return
	}
	f.info.ModTime = t
	cb(struct{}{}, nil)
}

func (l *Loopback) Mkdir(_ context.Context, path string, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	marker := path + "\\.dir"
	l.files[marker] = &file{info: wire.Info{IsDir: true, Attr: wire.AttrDir}}
	cb(struct{}{}, nil)
}

func (l *Loopback) Remove(_ context.Context, path string, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.files[path]; !ok {
		cb(struct{}{}, perr.New(perr.KindBadName, "not found: %s", path))
		return
	}
	delete(l.files, path)
	cb(struct{}{}, nil)
}

func (l *Loopback) Rmdir(ctx context.Context, path string, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	delete(l.files, path+"\\.dir")
	l.mu.Unlock()
	cb(struct{}{}, nil)
}

func (l *Loopback) Rename(_ context.Context, from, to string, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.files[from]
	if !ok {
		cb(struct{}{}, perr.New(perr.KindBadName, "not found: %s", from))
		return
	}
	delete(l.files, from)
	l.files[to] = f
	cb(struct{}{}, nil)
}

func (l *Loopback) QueryVolume(_ context.Context, drive byte, cb wire.Callback[wire.Volume]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkConnected(); err != nil {
		cb(wire.Volume{}, err)
		return
	}
	v, ok := l.volumes[drive]
	if !ok {
		cb(wire.Volume{Present: false}, nil)
		return
	}
	cb(v, nil)
}

func (l *Loopback) QueryUniqueID(_ context.Context, cb wire.Callback[uint32]) {
	if !l.HasTaskControl() {
		cb(0, perr.New(perr.KindRemoteNotSupported, "no task control service"))
		return
	}
	cb(1, nil)
}

func (l *Loopback) EnumTasks(_ context.Context, cb wire.Callback[[]wire.Task]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasTaskControl {
		cb(nil, perr.New(perr.KindRemoteNotSupported, "operation not supported"))
		return
	}
	var out []wire.Task
	for _, tk := range l.tasks {
		if tk.running {
			out = append(out, wire.Task{ID: tk.id, Name: tk.path, Args: tk.args})
		}
	}
	cb(out, nil)
}

func (l *Loopback) QueryDriveTasks(_ context.Context, drive byte, cb wire.Callback[[]wire.Task]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []wire.Task
	for _, tk := range l.tasks {
		if tk.running && strings.HasPrefix(strings.ToUpper(tk.path), string(drive)+":") {
			out = append(out, wire.Task{ID: tk.id, Name: tk.path, Args: tk.args})
		}
	}
	cb(out, nil)
}

func (l *Loopback) CommandLine(_ context.Context, taskID uint32, cb wire.Callback[string]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tk, ok := l.tasks[taskID]
	if !ok {
		cb("", perr.New(perr.KindBadHandle, "no such task"))
		return
	}
	cb(tk.args, nil)
}

func (l *Loopback) StopProgram(_ context.Context, taskID uint32, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tk, ok := l.tasks[taskID]
	if !ok {
		cb(struct{}{}, perr.New(perr.KindBadHandle, "no such task"))
		return
	}
	tk.running = false
	cb(struct{}{}, nil)
}

func (l *Loopback) ProgRunning(_ context.Context, taskID uint32, cb wire.Callback[bool]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tk, ok := l.tasks[taskID]
	cb(ok && tk.running, nil)
}

func (l *Loopback) StartProgram(_ context.Context, path, args string, cb wire.Callback[uint32]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fn := l.startHook; fn != nil {
		if ok, err := fn(path, args); !ok {
			cb(0, err)
			return
		}
	}
	l.nextTaskID++
	id := l.nextTaskID
	l.tasks[id] = &task{id: id, path: path, args: args, running: true}
	cb(id, nil)
}

// SetStartHook installs fn to gate StartProgram calls; fn returns
// (false, err) to fail the call instead of starting the task.
func (l *Loopback) SetStartHook(fn func(path, args string) (bool, error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startHook = fn
}

func (l *Loopback) MachineInfo(_ context.Context, cb wire.Callback[wire.MachineInfo]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cb(l.machine, nil)
}

func (l *Loopback) SetHomeTime(_ context.Context, t time.Time, cb wire.Callback[struct{}]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.machine.HomeTime = t
	cb(struct{}{}, nil)
}

func (l *Loopback) Power(_ context.Context, cb wire.Callback[struct{}]) {
	cb(struct{}{}, nil)
}

func leaf(path string) string {
	idx := strings.LastIndex(path, "\\")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

var _ wire.Service = (*Loopback)(nil)
