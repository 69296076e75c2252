package unified

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoukydides/riscos-psifs-sub001/internal/timerqueue"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire/loopback"
)

func newTestDispatcher(t *testing.T, era, sibo wire.Service, opt Options) (*Dispatcher, *time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := New(era, sibo, timerqueue.New(), opt)
	d.now = func() time.Time { return now }
	return d, &now
}

func submitSync(t *testing.T, d *Dispatcher, cmd Command) (Reply, error) {
	t.Helper()
	var reply Reply
	var gotErr error
	done := false
	err := d.Submit(context.Background(), cmd, nil, func(_ any, r Reply, e error) {
		reply, gotErr, done = r, e, true
	})
	require.NoError(t, err)
	require.True(t, done, "onComplete was not called synchronously against the loopback fake")
	return reply, gotErr
}

func TestVariantSelectionPrefersERA(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	sibo := loopback.New(wire.VariantSIBO)
	d, _ := newTestDispatcher(t, era, sibo, DefaultOptions())

	reply, err := submitSync(t, d, MachineCmd{})
	require.NoError(t, err)
	assert.Equal(t, "ERA", reply.(MachineReply).Info.Machine)
}

func TestVariantSelectionFallsBackToSIBO(t *testing.T) {
	sibo := loopback.New(wire.VariantSIBO)
	d, _ := newTestDispatcher(t, nil, sibo, DefaultOptions())

	reply, err := submitSync(t, d, MachineCmd{})
	require.NoError(t, err)
	assert.Equal(t, "SIBO", reply.(MachineReply).Info.Machine)
}

func TestPartiallyConnectedRejectsTaskControl(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	era.SetHasTaskControl(false)
	d, _ := newTestDispatcher(t, era, nil, DefaultOptions())

	_, err := submitSync(t, d, TasksCmd{})
	assert.Error(t, err)
}

func TestNoRemoteReportsError(t *testing.T) {
	d, _ := newTestDispatcher(t, nil, nil, DefaultOptions())
	_, err := submitSync(t, d, MachineCmd{})
	assert.Error(t, err)
}

func TestDriveReportsPresenceAndUniqueID(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	era.PutDrive('C', wire.Volume{Present: true, Name: "Internal"})
	d, _ := newTestDispatcher(t, era, nil, DefaultOptions())

	reply, err := submitSync(t, d, DriveCmd{Drive: 'C'})
	require.NoError(t, err)
	dr := reply.(DriveReply)
	assert.True(t, dr.Present)
	assert.Equal(t, "Internal", dr.Name)
	assert.NotZero(t, dr.UniqueID)
}

func TestDriveAbsent(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	d, _ := newTestDispatcher(t, era, nil, DefaultOptions())

	reply, err := submitSync(t, d, DriveCmd{Drive: 'Z'})
	require.NoError(t, err)
	assert.False(t, reply.(DriveReply).Present)
}

func TestListSortsCaseInsensitively(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	era.PutFile(`\dir\banana`, []byte("b"), 0)
	era.PutFile(`\dir\Apple`, []byte("a"), 0)
	era.PutFile(`\dir\cherry`, []byte("c"), 0)
	d, _ := newTestDispatcher(t, era, nil, DefaultOptions())

	reply, err := submitSync(t, d, ListCmd{Path: `\dir`})
	require.NoError(t, err)
	entries := reply.(ListReply).Entries
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"Apple", "banana", "cherry"}, []string{entries[0].Name, entries[1].Name, entries[2].Name})
}

func TestReadLoopsOverChunks(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i)
	}
	era.PutFile(`\big`, data, 0)
	opt := DefaultOptions()
	opt.MaxChunkERA = 4096
	d, _ := newTestDispatcher(t, era, nil, opt)

	openReply, err := submitSync(t, d, OpenCmd{Path: `\big`, Mode: wire.ModeIn})
	require.NoError(t, err)
	handle := openReply.(OpenReply).Handle

	reply, err := submitSync(t, d, ReadCmd{Handle: handle, Length: len(data)})
	require.NoError(t, err)
	assert.Equal(t, data, reply.(ReadReply).Data)
}

func TestWriteLoopsOverChunks(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	opt := DefaultOptions()
	opt.MaxChunkERA = 100
	d, _ := newTestDispatcher(t, era, nil, opt)

	openReply, err := submitSync(t, d, OpenCmd{Path: `\new`, Mode: wire.ModeOut})
	require.NoError(t, err)
	handle := openReply.(OpenReply).Handle

	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	reply, err := submitSync(t, d, WriteCmd{Handle: handle, Data: payload})
	require.NoError(t, err)
	assert.Equal(t, len(payload), reply.(WriteReply).N)

	_, err = submitSync(t, d, SeekCmd{Handle: handle, Offset: 0})
	require.NoError(t, err)
	readReply, err := submitSync(t, d, ReadCmd{Handle: handle, Length: len(payload)})
	require.NoError(t, err)
	assert.Equal(t, payload, readReply.(ReadReply).Data)
}

func TestZeroWritesZeroBytes(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	opt := DefaultOptions()
	opt.MaxChunkERA = 16
	d, _ := newTestDispatcher(t, era, nil, opt)

	openReply, err := submitSync(t, d, OpenCmd{Path: `\z`, Mode: wire.ModeOut})
	require.NoError(t, err)
	handle := openReply.(OpenReply).Handle

	reply, err := submitSync(t, d, ZeroCmd{Handle: handle, Length: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, reply.(WriteReply).N)

	_, err = submitSync(t, d, SeekCmd{Handle: handle, Offset: 0})
	require.NoError(t, err)
	readReply, err := submitSync(t, d, ReadCmd{Handle: handle, Length: 50})
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 50), readReply.(ReadReply).Data)
}

func TestTasksSIBOWalksDriveLetters(t *testing.T) {
	sibo := loopback.New(wire.VariantSIBO)
	sibo.AddTask(`C:\APP\PROG`, `C:\DOC\FILE`)
	d, _ := newTestDispatcher(t, nil, sibo, DefaultOptions())

	reply, err := submitSync(t, d, TasksCmd{})
	require.NoError(t, err)
	tasks := reply.(TasksReply).Tasks
	require.Len(t, tasks, 1)
	assert.Equal(t, "C:.APP.PROG", tasks[0].Name)
	assert.Equal(t, "C:.DOC.FILE", tasks[0].Args)
}

func TestTasksERAUsesEnumTasks(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	era.AddTask(`\System\App`, "")
	d, _ := newTestDispatcher(t, era, nil, DefaultOptions())

	reply, err := submitSync(t, d, TasksCmd{})
	require.NoError(t, err)
	tasks := reply.(TasksReply).Tasks
	require.Len(t, tasks, 1)
	assert.Equal(t, ".System.App", tasks[0].Name)
}

func TestStopSucceedsImmediatelyWhenProgramExits(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	id := era.AddTask(`\App`, "")
	d, _ := newTestDispatcher(t, era, nil, DefaultOptions())

	_, err := submitSync(t, d, StopCmd{TaskID: id})
	require.NoError(t, err)
}

// stubbornService wraps a Loopback so StopProgram never actually
// stops the task, letting a test drive the stop-timeout path.
type stubbornService struct {
	*loopback.Loopback
}

func (s stubbornService) StopProgram(ctx context.Context, taskID uint32, cb wire.Callback[struct{}]) {
	cb(struct{}{}, nil)
}

func (s stubbornService) ProgRunning(ctx context.Context, taskID uint32, cb wire.Callback[bool]) {
	cb(true, nil)
}

func TestStopTimesOutWhenStillRunning(t *testing.T) {
	era := stubbornService{loopback.New(wire.VariantERA)}
	opt := DefaultOptions()
	opt.StopPollInterval = time.Second
	opt.StopTimeout = 2 * time.Second
	d, now := newTestDispatcher(t, era, nil, opt)

	var gotErr error
	done := false
	require.NoError(t, d.Submit(context.Background(), StopCmd{TaskID: 1}, nil, func(_ any, _ Reply, e error) {
		gotErr, done = e, true
	}))
	assert.False(t, done, "stop must not resolve before the timeout while the task keeps reporting running")

	for i := 0; i < 3; i++ {
		*now = now.Add(time.Second)
		d.Advance(*now)
	}
	require.True(t, done)
	assert.Error(t, gotErr)
}

func TestStartSettlesBeforeReporting(t *testing.T) {
	sibo := loopback.New(wire.VariantSIBO)
	opt := DefaultOptions()
	opt.StartSettleDelay = time.Second
	d, now := newTestDispatcher(t, nil, sibo, opt)

	var reply Reply
	var gotErr error
	done := false
	require.NoError(t, d.Submit(context.Background(), StartCmd{Path: `C:\APP`, Args: ""}, nil, func(_ any, r Reply, e error) {
		reply, gotErr, done = r, e, true
	}))
	assert.False(t, done, "start must wait out the settle delay before completing")

	*now = now.Add(2 * time.Second)
	n := d.Advance(*now)
	assert.Equal(t, 1, n)
	require.True(t, done)
	require.NoError(t, gotErr)
	assert.NotZero(t, reply.(StartReply).TaskID)
}

func TestWTimePreservesMachineInfoRoundTrip(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	d, _ := newTestDispatcher(t, era, nil, DefaultOptions())

	target := time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)
	_, err := submitSync(t, d, WTimeCmd{Time: target})
	require.NoError(t, err)

	reply, err := submitSync(t, d, RTimeCmd{})
	require.NoError(t, err)
	assert.True(t, target.Equal(reply.(RTimeReply).Time))
}

func TestNameValidatesRoundTrip(t *testing.T) {
	era := loopback.New(wire.VariantERA)
	d, _ := newTestDispatcher(t, era, nil, DefaultOptions())

	reply, err := submitSync(t, d, NameCmd{Path: "Docs.Report"})
	require.NoError(t, err)
	assert.Equal(t, "Docs.Report", reply.(NameReply).Path)
}
