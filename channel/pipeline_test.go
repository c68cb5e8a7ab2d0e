// File: channel/pipeline_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import (
	"errors"
	"net"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-net/api"
)

// fakeTransport records every physical operation the head sentinel
// forwards to it.
type fakeTransport struct {
	active bool
	open   bool

	reads   int
	written []any
	flushes int

	connectErr error
}

func newFakeTransport() *fakeTransport { return &fakeTransport{open: true} }

func (t *fakeTransport) Attach(api.Channel) {}

func (t *fakeTransport) Bind(net.Addr) error {
	t.active = true
	return nil
}

func (t *fakeTransport) Connect(remote, local net.Addr) error {
	if t.connectErr != nil {
		return t.connectErr
	}
	t.active = true
	return nil
}

func (t *fakeTransport) Disconnect() error { t.active = false; return nil }
func (t *fakeTransport) Close() error      { t.active = false; t.open = false; return nil }
func (t *fakeTransport) BeginRead() error  { t.reads++; return nil }

func (t *fakeTransport) Write(msg any) error {
	t.written = append(t.written, msg)
	return nil
}

func (t *fakeTransport) Flush() error { t.flushes++; return nil }

func (t *fakeTransport) LocalAddr() net.Addr  { return nil }
func (t *fakeTransport) RemoteAddr() net.Addr { return nil }
func (t *fakeTransport) IsOpen() bool         { return t.open }
func (t *fakeTransport) IsActive() bool       { return t.active }

// inboundProbe appends its label to a shared trace on every inbound
// event, then forwards.
type inboundProbe struct {
	InboundAdapter

	label   string
	trace   *[]string
	added   int
	removed int

	readErr   error
	caught    []error
	swallow   bool
	panicOnRd bool
}

func (p *inboundProbe) HandlerAdded(api.HandlerContext) error   { p.added++; return nil }
func (p *inboundProbe) HandlerRemoved(api.HandlerContext) error { p.removed++; return nil }

func (p *inboundProbe) ChannelRead(ctx api.HandlerContext, msg any) error {
	*p.trace = append(*p.trace, p.label)
	if p.panicOnRd {
		panic("probe blew up")
	}
	if p.readErr != nil {
		return p.readErr
	}
	ctx.FireChannelRead(msg)
	return nil
}

func (p *inboundProbe) ExceptionCaught(ctx api.HandlerContext, err error) {
	p.caught = append(p.caught, err)
	if !p.swallow {
		ctx.FireExceptionCaught(err)
	}
}

// outboundProbe appends its label on every write, then forwards with
// the caller's promise.
type outboundProbe struct {
	OutboundAdapter

	label string
	trace *[]string
}

func (p *outboundProbe) Write(ctx api.HandlerContext, msg any, promise api.Promise) {
	*p.trace = append(*p.trace, p.label)
	ForwardWrite(ctx, msg, promise)
}

func newTestChannel() (api.Channel, *fakeTransport) {
	tr := newFakeTransport()
	return New(nil, tr), tr
}

func TestAddRejectsDuplicateNameWithoutMutation(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()
	var trace []string

	require.NoError(t, pl.AddLast("probe", &inboundProbe{label: "a", trace: &trace}))

	dup := &inboundProbe{label: "b", trace: &trace}
	err := pl.AddLast("probe", dup)
	require.ErrorIs(t, err, api.ErrDuplicateName)

	assert.Equal(t, []string{"probe"}, pl.Names())
	assert.Zero(t, dup.added, "rejected handler must not observe the added hook")

	pl.FireChannelRead("msg")
	assert.Equal(t, []string{"a"}, trace)
}

func TestSentinelNamesAreReserved(t *testing.T) {
	ch, _ := newTestChannel()
	var trace []string

	for _, name := range []string{"head", "tail"} {
		err := ch.Pipeline().AddLast(name, &inboundProbe{label: name, trace: &trace})
		assert.ErrorIs(t, err, api.ErrDuplicateName, name)
	}
}

func TestInboundEventsTraverseInAdditionOrder(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()
	var trace []string

	require.NoError(t, pl.AddLast("h1", &inboundProbe{label: "h1", trace: &trace}))
	require.NoError(t, pl.AddLast("h2", &inboundProbe{label: "h2", trace: &trace}))
	require.NoError(t, pl.AddLast("h3", &inboundProbe{label: "h3", trace: &trace}))

	pl.FireChannelRead("msg")
	assert.Equal(t, []string{"h1", "h2", "h3"}, trace)
}

func TestOutboundOperationsTraverseInReverseOrder(t *testing.T) {
	ch, tr := newTestChannel()
	pl := ch.Pipeline()
	var trace []string

	require.NoError(t, pl.AddLast("h1", &outboundProbe{label: "h1", trace: &trace}))
	require.NoError(t, pl.AddLast("h2", &outboundProbe{label: "h2", trace: &trace}))
	require.NoError(t, pl.AddLast("h3", &outboundProbe{label: "h3", trace: &trace}))

	f := pl.Write("payload")
	assert.Equal(t, []string{"h3", "h2", "h1"}, trace)
	assert.Equal(t, []any{"payload"}, tr.written)
	assert.True(t, f.IsDone())
	assert.NoError(t, f.Err())
}

func TestInterleavedChainSkipsWrongDirection(t *testing.T) {
	ch, tr := newTestChannel()
	pl := ch.Pipeline()
	var in, out []string

	require.NoError(t, pl.AddLast("in1", &inboundProbe{label: "in1", trace: &in}))
	require.NoError(t, pl.AddLast("out1", &outboundProbe{label: "out1", trace: &out}))
	require.NoError(t, pl.AddLast("in2", &inboundProbe{label: "in2", trace: &in}))

	pl.FireChannelRead("msg")
	assert.Equal(t, []string{"in1", "in2"}, in)

	pl.Write("reply")
	assert.Equal(t, []string{"out1"}, out)
	assert.Equal(t, []any{"reply"}, tr.written)
}

func TestHandlerErrorDeliveredToOwnContextFirst(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()
	var trace []string
	boom := errors.New("boom")

	before := &inboundProbe{label: "before", trace: &trace}
	failing := &inboundProbe{label: "failing", trace: &trace, readErr: boom, swallow: true}
	after := &inboundProbe{label: "after", trace: &trace}

	require.NoError(t, pl.AddLast("before", before))
	require.NoError(t, pl.AddLast("failing", failing))
	require.NoError(t, pl.AddLast("after", after))

	pl.FireChannelRead("msg")

	// Propagation stops at the failing handler; the error lands on that
	// handler's own exception hook, not upstream of it.
	assert.Equal(t, []string{"before", "failing"}, trace)
	require.Len(t, failing.caught, 1)
	assert.ErrorIs(t, failing.caught[0], boom)
	assert.Empty(t, before.caught)
	assert.Empty(t, after.caught)
}

func TestHandlerPanicBecomesException(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()
	var trace []string

	failing := &inboundProbe{label: "failing", trace: &trace, panicOnRd: true, swallow: true}
	require.NoError(t, pl.AddLast("failing", failing))

	pl.FireChannelRead("msg")

	require.Len(t, failing.caught, 1)
	assert.Contains(t, failing.caught[0].Error(), "probe blew up")
}

func TestExceptionForwardsDownstreamWhenNotSwallowed(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()
	var trace []string
	boom := errors.New("boom")

	failing := &inboundProbe{label: "failing", trace: &trace, readErr: boom}
	last := &inboundProbe{label: "last", trace: &trace, swallow: true}
	require.NoError(t, pl.AddLast("failing", failing))
	require.NoError(t, pl.AddLast("last", last))

	pl.FireChannelRead("msg")

	require.Len(t, failing.caught, 1)
	require.Len(t, last.caught, 1)
	assert.ErrorIs(t, last.caught[0], boom)
}

// exclusive is a handler bound to at most one pipeline at a time.
type exclusive struct {
	InboundAdapter
}

func (*exclusive) Shareable() bool { return false }

func TestNonShareableHandlerRejectsSecondPipeline(t *testing.T) {
	ch1, _ := newTestChannel()
	ch2, _ := newTestChannel()
	h := &exclusive{}

	require.NoError(t, ch1.Pipeline().AddLast("x", h))

	err := ch2.Pipeline().AddLast("x", h)
	require.ErrorIs(t, err, api.ErrHandlerReused)
	assert.Empty(t, ch2.Pipeline().Names())

	// Removal releases the binding for reuse elsewhere.
	_, err = ch1.Pipeline().Remove("x")
	require.NoError(t, err)
	assert.NoError(t, ch2.Pipeline().AddLast("x", h))
}

func TestNonShareableDistinctInstancesAreIndependent(t *testing.T) {
	// Two separate instances of a field-less handler type must not be
	// confused with each other: zero-size values share one address, so
	// identity alone cannot tell them apart.
	ch1, _ := newTestChannel()
	ch2, _ := newTestChannel()

	require.NoError(t, ch1.Pipeline().AddLast("x", &exclusive{}))
	require.NoError(t, ch2.Pipeline().AddLast("x", &exclusive{}))

	assert.Equal(t, []string{"x"}, ch1.Pipeline().Names())
	assert.Equal(t, []string{"x"}, ch2.Pipeline().Names())
}

func TestGeneratedNamesAreUnique(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()
	var trace []string

	require.NoError(t, pl.AddLast("", &inboundProbe{label: "a", trace: &trace}))
	require.NoError(t, pl.AddLast("", &inboundProbe{label: "b", trace: &trace}))

	names := pl.Names()
	require.Len(t, names, 2)
	assert.NotEqual(t, names[0], names[1])
	assert.Contains(t, names[0], "inboundprobe")
}

func TestAddBeforeAndAfterAnchors(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()
	var trace []string

	require.NoError(t, pl.AddLast("mid", &inboundProbe{label: "mid", trace: &trace}))
	require.NoError(t, pl.AddBefore("mid", "first", &inboundProbe{label: "first", trace: &trace}))
	require.NoError(t, pl.AddAfter("mid", "last", &inboundProbe{label: "last", trace: &trace}))

	assert.Equal(t, []string{"first", "mid", "last"}, pl.Names())

	err := pl.AddBefore("missing", "x", &inboundProbe{label: "x", trace: &trace})
	assert.ErrorIs(t, err, api.ErrNotFound)
	err = pl.AddAfter("head", "x", &inboundProbe{label: "x", trace: &trace})
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestRemoveAndReplace(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()
	var trace []string

	a := &inboundProbe{label: "a", trace: &trace}
	b := &inboundProbe{label: "b", trace: &trace}
	require.NoError(t, pl.AddLast("a", a))
	require.NoError(t, pl.AddLast("b", b))

	got, err := pl.Remove("a")
	require.NoError(t, err)
	assert.Same(t, api.Handler(a), got)
	assert.Equal(t, 1, a.removed)

	c := &inboundProbe{label: "c", trace: &trace}
	old, err := pl.Replace("b", "c", c)
	require.NoError(t, err)
	assert.Same(t, api.Handler(b), old)
	assert.Equal(t, []string{"c"}, pl.Names())

	pl.FireChannelRead("msg")
	assert.Equal(t, []string{"c"}, trace)

	_, err = pl.Remove("b")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestRemoveTypeDetachesFirstMatch(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()
	var trace []string

	first := &exclusive{}
	require.NoError(t, pl.AddLast("first", first))
	require.NoError(t, pl.AddLast("mid", &inboundProbe{label: "mid", trace: &trace}))
	require.NoError(t, pl.AddLast("second", &exclusive{}))

	got, err := pl.RemoveType(reflect.TypeOf(&exclusive{}))
	require.NoError(t, err)
	assert.Same(t, api.Handler(first), got)
	assert.Equal(t, []string{"mid", "second"}, pl.Names())

	_, err = pl.RemoveType(reflect.TypeOf(&addFailer{}))
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestRemoveEndsOnEmptyPipeline(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()

	_, err := pl.RemoveFirst()
	assert.ErrorIs(t, err, api.ErrPipelineEmpty)
	_, err = pl.RemoveLast()
	assert.ErrorIs(t, err, api.ErrPipelineEmpty)
}

// addFailer rejects installation from its added hook.
type addFailer struct {
	InboundAdapter
}

func (*addFailer) HandlerAdded(api.HandlerContext) error {
	return errors.New("refusing installation")
}

func TestFailedAddedHookRollsBackInsert(t *testing.T) {
	ch, _ := newTestChannel()
	pl := ch.Pipeline()

	err := pl.AddLast("bad", &addFailer{})
	require.Error(t, err)
	assert.Empty(t, pl.Names())
	assert.Nil(t, pl.Context("bad"))
}

func TestHeadSatisfiesOutboundThroughTransport(t *testing.T) {
	ch, tr := newTestChannel()
	pl := ch.Pipeline()

	f := pl.Bind(&net.TCPAddr{IP: net.IPv4zero, Port: 0})
	require.True(t, f.IsDone())
	require.NoError(t, f.Err())
	assert.True(t, tr.active)

	pl.Write("one")
	pl.Flush()
	assert.Equal(t, []any{"one"}, tr.written)
	assert.Equal(t, 1, tr.flushes)
}

func TestBindFiresActiveAndAutoRead(t *testing.T) {
	ch, tr := newTestChannel()
	pl := ch.Pipeline()
	var trace []string
	require.NoError(t, pl.AddLast("probe", &inboundProbe{label: "probe", trace: &trace}))

	pl.Bind(&net.TCPAddr{IP: net.IPv4zero, Port: 0})

	// Activation triggers the first read request when auto-read is on.
	assert.Equal(t, 1, tr.reads)

	ch.Config().SetAutoRead(false)
	pl.FireChannelReadComplete()
	assert.Equal(t, 1, tr.reads, "read-complete must not rearm with auto-read off")

	ch.Config().SetAutoRead(true)
	assert.Equal(t, 2, tr.reads, "re-enabling auto-read on an active channel reads immediately")
}

func TestChannelCloseFiresInactiveAndUnregistered(t *testing.T) {
	ch, tr := newTestChannel()
	pl := ch.Pipeline()
	var trace []string

	probe := &lifecycleProbe{trace: &trace}
	require.NoError(t, pl.AddLast("probe", probe))

	require.NoError(t, pl.Bind(&net.TCPAddr{}).Err())
	require.True(t, ch.IsActive())

	f := ch.Close()
	require.True(t, f.IsDone())
	require.NoError(t, f.Err())
	assert.False(t, ch.IsOpen())
	assert.False(t, tr.open)
	assert.Equal(t, []string{"active", "inactive"}, trace)
	assert.True(t, ch.CloseFuture().IsDone())

	// Closing twice completes against the same close future.
	f2 := ch.Close()
	require.True(t, f2.IsDone())
	assert.NoError(t, f2.Err())
	assert.Equal(t, []string{"active", "inactive"}, trace)
}

// lifecycleProbe records activation transitions only.
type lifecycleProbe struct {
	InboundAdapter

	trace *[]string
}

func (p *lifecycleProbe) ChannelActive(ctx api.HandlerContext) error {
	*p.trace = append(*p.trace, "active")
	ctx.FireChannelActive()
	return nil
}

func (p *lifecycleProbe) ChannelInactive(ctx api.HandlerContext) error {
	*p.trace = append(*p.trace, "inactive")
	ctx.FireChannelInactive()
	return nil
}
