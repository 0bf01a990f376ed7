package sigbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/sigbus/dispatch"
	"github.com/dshills/sigbus/journal"
	"github.com/dshills/sigbus/pattern"
	"github.com/dshills/sigbus/signal"
)

// Signal is the envelope type moved by the bus.
type Signal = signal.Signal

// DeliveryFailure is one observed delivery problem, reported on the
// Errors channel. Delivery is decoupled from publishing, so failures
// never surface through Publish.
type DeliveryFailure struct {
	// SubscriptionID is the affected subscription. Empty for
	// point-to-point deliveries carried on the signal itself.
	SubscriptionID string

	// SignalID is the signal whose delivery failed. Empty for replay
	// gap notices, which concern a range rather than one signal.
	SignalID string

	// Err is the delivery error.
	Err error

	// Time is when the failure was observed.
	Time time.Time
}

// Stats contains bus counters.
type Stats struct {
	// Published is the number of signals accepted by Publish.
	Published uint64

	// Delivered is the number of successful adapter deliveries.
	Delivered uint64

	// Failed is the number of failed adapter deliveries.
	Failed uint64

	// Dropped is the number of deliveries dropped on full queues.
	Dropped uint64

	// Evicted is the number of signals evicted from the log.
	Evicted uint64

	// Subscriptions is the current subscription count.
	Subscriptions int

	// LogLen is the current retained log length.
	LogLen int
}

// Bus is the stateful signal hub: it owns the append-only log and the
// subscription table, matches published signals against subscription
// patterns, and drives delivery through the dispatch registry.
//
// All state mutation is serialized through a single control loop; the
// log, subscription table and router have exactly one owner and need
// no locks. Delivery runs on per-subscription workers, so a slow or
// failing adapter cannot block Publish or starve other subscribers.
type Bus struct {
	cfg         config
	logger      *slog.Logger
	registry    *dispatch.Registry
	broadcaster *dispatch.Broadcaster
	store       journal.Store

	// Control-loop owned state. Never touched off the loop.
	router    *pattern.Router
	log       *signalLog
	subs      map[string]*subscription
	snapshots map[string]*journal.Snapshot

	cmds    chan command
	quit    chan struct{}
	started atomic.Bool
	stopped atomic.Bool
	workers sync.WaitGroup

	errs chan DeliveryFailure

	published atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	evicted   atomic.Uint64
	subCount  atomic.Int64
	logLen    atomic.Int64
}

// command is a request processed by the control loop.
type command any

type publishCmd struct {
	sig   *Signal
	reply chan error
}

type subscribeCmd struct {
	pat    string
	target dispatch.Config
	cfg    subscribeConfig
	reply  chan subscribeReply
}

type subscribeReply struct {
	id  string
	err error
}

type unsubscribeCmd struct {
	id    string
	reply chan error
}

type ackCmd struct {
	subID    string
	signalID string
	reply    chan error
}

type replayCmd struct {
	subID  string
	fromID string
	toID   string
	reply  chan replayReply
}

type replayReply struct {
	rep *Replay
	err error
}

type snapshotCmd struct {
	name  string
	reply chan snapshotReply
}

type snapshotReply struct {
	id  string
	err error
}

type snapshotGetCmd struct {
	id    string
	reply chan snapshotGetReply
}

type snapshotGetReply struct {
	snap *journal.Snapshot
	err  error
}

type restoreCmd struct {
	id    string
	reply chan error
}

type subscriptionsCmd struct {
	reply chan []SubscriptionInfo
}

type routeCmd struct {
	sigType string
	reply   chan []SubscriptionInfo
}

type stopCmd struct {
	reply chan struct{}
}

// New creates a bus. Unless WithRegistry is given, the registry is
// populated with the built-in adapters: direct, broadcast, logsink,
// noop and webhook.
func New(opts ...Option) *Bus {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Bus{
		cfg:         cfg,
		logger:      cfg.logger,
		broadcaster: dispatch.NewBroadcaster(),
		router:      pattern.NewRouter(),
		log:         newSignalLog(cfg.maxLogSize),
		subs:        make(map[string]*subscription),
		snapshots:   make(map[string]*journal.Snapshot),
		cmds:        make(chan command),
		quit:        make(chan struct{}),
		errs:        make(chan DeliveryFailure, cfg.errorBuffer),
	}

	if cfg.registry != nil {
		b.registry = cfg.registry
	} else {
		b.registry = dispatch.NewRegistry()
		_ = b.registry.Register(dispatch.AdapterDirect, dispatch.NewDirect())
		_ = b.registry.Register(dispatch.AdapterBroadcast, dispatch.NewBroadcast(b.broadcaster))
		_ = b.registry.Register(dispatch.AdapterLogSink, dispatch.NewLogSink(cfg.logger))
		_ = b.registry.Register(dispatch.AdapterNoop, dispatch.NewNoop())
		_ = b.registry.Register(dispatch.AdapterWebhook, dispatch.NewWebhook())
	}

	if cfg.journal != nil {
		b.store = cfg.journal
	} else {
		b.store = journal.NewMemory(0)
	}

	return b
}

// Start begins processing. A stopped bus cannot be restarted.
func (b *Bus) Start() error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	if !b.started.CompareAndSwap(false, true) {
		return ErrBusAlreadyRunning
	}
	go b.run()
	return nil
}

// Stop shuts the bus down. Stopped is terminal: no further publishes
// or subscribes are accepted. Stop waits for in-flight deliveries to
// drain until the context expires; leftover deliveries are abandoned.
func (b *Bus) Stop(ctx context.Context) error {
	if !b.started.Load() {
		return ErrBusNotRunning
	}
	if b.stopped.Swap(true) {
		return ErrBusStopped
	}

	reply := make(chan struct{})
	b.cmds <- stopCmd{reply: reply}
	<-reply

	done := make(chan struct{})
	go func() {
		b.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the bus accepts operations.
func (b *Bus) IsRunning() bool {
	return b.started.Load() && !b.stopped.Load()
}

// Registry returns the bus's adapter registry, for hosts that want to
// plug in additional transports.
func (b *Bus) Registry() *dispatch.Registry {
	return b.registry
}

// Broadcaster returns the broadcast group registry backing the
// built-in broadcast adapter.
func (b *Bus) Broadcaster() *dispatch.Broadcaster {
	return b.broadcaster
}

// Errors returns the delivery failure observation channel. Failures
// are dropped, not queued, when the channel is full.
func (b *Bus) Errors() <-chan DeliveryFailure {
	return b.errs
}

// Stats returns current bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Failed:        b.failed.Load(),
		Dropped:       b.dropped.Load(),
		Evicted:       b.evicted.Load(),
		Subscriptions: int(b.subCount.Load()),
		LogLen:        int(b.logLen.Load()),
	}
}

// send hands a command to the control loop.
func (b *Bus) send(c command) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	if !b.started.Load() {
		return ErrBusNotRunning
	}
	select {
	case b.cmds <- c:
		return nil
	case <-b.quit:
		return ErrBusStopped
	}
}

// Publish appends the signal to the log and fans it out to matching
// subscriptions. It returns once the append and match complete;
// deliveries proceed asynchronously. Callers only ever see validation
// and log failures here - delivery failures surface on Errors.
func (b *Bus) Publish(sig *Signal) error {
	reply := make(chan error, 1)
	if err := b.send(publishCmd{sig: sig, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// Subscribe registers a pattern subscription with the given delivery
// target. The pattern and the target's adapter options are validated
// before any state changes. Re-subscribing with an existing id (via
// WithSubscriptionID) updates pattern and target atomically while
// keeping the checkpoint.
func (b *Bus) Subscribe(pat string, target dispatch.Config, opts ...SubscribeOption) (string, error) {
	cfg := subscribeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	reply := make(chan subscribeReply, 1)
	if err := b.send(subscribeCmd{pat: pat, target: target, cfg: cfg, reply: reply}); err != nil {
		return "", err
	}
	r := <-reply
	return r.id, r.err
}

// Unsubscribe removes a subscription. Removing an unknown id is a
// benign no-op, so Unsubscribe is idempotent.
func (b *Bus) Unsubscribe(subID string) error {
	reply := make(chan error, 1)
	if err := b.send(unsubscribeCmd{id: subID, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// Ack advances a persistent subscription's checkpoint to signalID.
// Acks for ids at or below the current checkpoint are accepted as
// no-ops; the checkpoint never moves backward.
func (b *Bus) Ack(subID, signalID string) error {
	reply := make(chan error, 1)
	if err := b.send(ackCmd{subID: subID, signalID: signalID, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// Replay returns a point-in-time view of the log entries with ids in
// [fromID, toID], in log order. An empty fromID starts at the
// subscription's checkpoint; an empty toID runs to the newest retained
// entry. If the requested start predates the oldest retained entry the
// call reports a ReplayGapError instead of silently starting later.
func (b *Bus) Replay(subID, fromID, toID string) (*Replay, error) {
	reply := make(chan replayReply, 1)
	if err := b.send(replayCmd{subID: subID, fromID: fromID, toID: toID, reply: reply}); err != nil {
		return nil, err
	}
	r := <-reply
	return r.rep, r.err
}

// History reads signals straight from the backing journal, which may
// retain more than the bus's bounded log window. Unlike Replay it has
// no gap semantics: entries the store has pruned are simply absent
// from the result. A limit of zero means no bound.
//
// The journal outlives the control loop, so History also works on a
// stopped bus.
func (b *Bus) History(fromID, toID string, limit int) ([]*Signal, error) {
	entries, err := b.store.Read(journal.Range{FromID: fromID, ToID: toID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("journal read: %w", err)
	}
	return entries, nil
}

// Snapshot captures the current log window and subscription table
// under the given name and returns the snapshot id.
func (b *Bus) Snapshot(name string) (string, error) {
	reply := make(chan snapshotReply, 1)
	if err := b.send(snapshotCmd{name: name, reply: reply}); err != nil {
		return "", err
	}
	r := <-reply
	return r.id, r.err
}

// SnapshotByID returns a previously captured snapshot for inspection.
func (b *Bus) SnapshotByID(id string) (*journal.Snapshot, error) {
	reply := make(chan snapshotGetReply, 1)
	if err := b.send(snapshotGetCmd{id: id, reply: reply}); err != nil {
		return nil, err
	}
	r := <-reply
	return r.snap, r.err
}

// RestoreSnapshot rehydrates the log and subscription table from a
// snapshot. Existing subscriptions are discarded. Intended for
// recovery, not normal operation.
func (b *Bus) RestoreSnapshot(id string) error {
	reply := make(chan error, 1)
	if err := b.send(restoreCmd{id: id, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// Route returns the subscriptions a signal of the given type would be
// delivered to, in delivery order: priority descending, ties broken by
// subscription id. Useful for inspecting routing without publishing.
func (b *Bus) Route(sigType string) []SubscriptionInfo {
	reply := make(chan []SubscriptionInfo, 1)
	if err := b.send(routeCmd{sigType: sigType, reply: reply}); err != nil {
		return nil
	}
	return <-reply
}

// Subscriptions returns the current subscription table.
func (b *Bus) Subscriptions() []SubscriptionInfo {
	reply := make(chan []SubscriptionInfo, 1)
	if err := b.send(subscriptionsCmd{reply: reply}); err != nil {
		return nil
	}
	return <-reply
}

// run is the control loop. It is the single owner of the log, the
// subscription table and the router.
func (b *Bus) run() {
	for {
		c := <-b.cmds
		switch cmd := c.(type) {
		case publishCmd:
			cmd.reply <- b.handlePublish(cmd.sig)
		case subscribeCmd:
			cmd.reply <- b.handleSubscribe(cmd.pat, cmd.target, cmd.cfg)
		case unsubscribeCmd:
			cmd.reply <- b.handleUnsubscribe(cmd.id)
		case ackCmd:
			cmd.reply <- b.handleAck(cmd.subID, cmd.signalID)
		case replayCmd:
			cmd.reply <- b.handleReplay(cmd.subID, cmd.fromID, cmd.toID)
		case snapshotCmd:
			cmd.reply <- b.handleSnapshot(cmd.name)
		case snapshotGetCmd:
			cmd.reply <- b.handleSnapshotGet(cmd.id)
		case restoreCmd:
			cmd.reply <- b.handleRestore(cmd.id)
		case subscriptionsCmd:
			cmd.reply <- b.handleSubscriptions()
		case routeCmd:
			cmd.reply <- b.handleRoute(cmd.sigType)
		case stopCmd:
			b.shutdown()
			close(b.quit)
			cmd.reply <- struct{}{}
			return
		}
	}
}

// shutdown closes every subscription queue so workers drain and exit.
func (b *Bus) shutdown() {
	for _, sub := range b.subs {
		close(sub.queue)
	}
	b.logger.Debug("bus stopped",
		slog.Uint64("published", b.published.Load()),
		slog.Uint64("delivered", b.delivered.Load()),
		slog.Uint64("failed", b.failed.Load()))
}

func (b *Bus) handlePublish(sig *Signal) error {
	if sig == nil {
		return ErrNilSignal
	}
	if sig.ID == "" || sig.Type == "" {
		return ErrInvalidSignal
	}
	if b.log.contains(sig.ID) {
		return ErrDuplicateSignal
	}

	if err := b.store.Append([]*signal.Signal{sig}); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}

	evicted := b.log.append(sig)
	b.logLen.Store(int64(b.log.len()))
	if len(evicted) > 0 {
		b.evicted.Add(uint64(len(evicted)))
		b.notifyGaps()
	}

	b.published.Add(1)

	// A dispatch target on the signal itself overrides fan-out:
	// point-to-point delivery, no pattern matching.
	if sig.Dispatch != nil {
		b.deliverDirect(sig)
		return nil
	}

	for _, m := range b.router.Lookup(sig.Type) {
		sub, ok := b.subs[m.SubscriptionID]
		if !ok {
			// The router and the table are mutated together on this
			// loop; disagreement means corrupted state.
			panic(fmt.Errorf("%w: %s routed but not in table", ErrRouting, m.SubscriptionID))
		}
		if sub.filter != nil && !sub.filter(sig) {
			continue
		}
		select {
		case sub.queue <- delivery{sig: sig, target: sub.target}:
		default:
			b.dropped.Add(1)
			b.report(DeliveryFailure{
				SubscriptionID: sub.id,
				SignalID:       sig.ID,
				Err:            ErrDeliveryQueueFull,
				Time:           time.Now(),
			})
		}
	}
	return nil
}

// deliverDirect runs a signal's attached dispatch target off the loop.
func (b *Bus) deliverDirect(sig *Signal) {
	b.workers.Add(1)
	go func() {
		defer b.workers.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.deliveryTimeout)
		defer cancel()
		err := b.registry.Deliver(ctx, sig, sig.Dispatch.Adapter, dispatch.Options(sig.Dispatch.Options))
		if err != nil {
			b.failed.Add(1)
			b.report(DeliveryFailure{SignalID: sig.ID, Err: err, Time: time.Now()})
			return
		}
		b.delivered.Add(1)
	}()
}

// notifyGaps tells persistent subscriptions whose checkpoints fall
// inside the evicted region that their backlog can no longer be fully
// replayed.
func (b *Bus) notifyGaps() {
	through := b.log.evictedThrough
	oldest := b.log.oldest()
	for _, sub := range b.subs {
		if !sub.persistent {
			continue
		}
		if sub.checkpoint < through {
			b.report(DeliveryFailure{
				SubscriptionID: sub.id,
				Err: &ReplayGapError{
					SubscriptionID: sub.id,
					FromID:         sub.checkpoint,
					OldestRetained: oldest,
				},
				Time: time.Now(),
			})
		}
	}
}

func (b *Bus) handleSubscribe(pat string, target dispatch.Config, cfg subscribeConfig) subscribeReply {
	p := pattern.Pattern(pat)
	if err := p.Validate(); err != nil {
		return subscribeReply{err: err}
	}
	if err := b.registry.Validate(target.Adapter, target.Options); err != nil {
		return subscribeReply{err: err}
	}

	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}

	if existing, ok := b.subs[id]; ok {
		// Update pattern/target in place; the checkpoint, kind and
		// delivery worker survive.
		if err := b.router.Insert(p, id, cfg.priority); err != nil {
			return subscribeReply{err: err}
		}
		existing.pat = p
		existing.target = target
		existing.priority = cfg.priority
		existing.filter = cfg.filter
		return subscribeReply{id: id}
	}

	if err := b.router.Insert(p, id, cfg.priority); err != nil {
		return subscribeReply{err: err}
	}
	sub := &subscription{
		id:         id,
		pat:        p,
		target:     target,
		priority:   cfg.priority,
		filter:     cfg.filter,
		persistent: cfg.persistent,
		checkpoint: cfg.checkpoint,
		queue:      make(chan delivery, b.cfg.queueSize),
	}
	b.subs[id] = sub
	b.subCount.Store(int64(len(b.subs)))

	b.workers.Add(1)
	go b.deliverLoop(sub)

	return subscribeReply{id: id}
}

func (b *Bus) handleUnsubscribe(id string) error {
	sub, ok := b.subs[id]
	if !ok {
		return nil
	}
	delete(b.subs, id)
	b.router.Remove(id)
	close(sub.queue)
	b.subCount.Store(int64(len(b.subs)))
	return nil
}

func (b *Bus) handleAck(subID, signalID string) error {
	sub, ok := b.subs[subID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	if !sub.persistent {
		return ErrNotPersistent
	}
	if signalID == "" {
		return ErrInvalidSignal
	}
	if signalID <= sub.checkpoint {
		// Older or repeated ack: accepted, checkpoint unmoved.
		return nil
	}
	sub.checkpoint = signalID

	// The journal may only prune up to the slowest persistent
	// subscriber's checkpoint.
	if m := b.minCheckpoint(); m != "" {
		if err := b.store.Checkpoint(m); err != nil {
			b.logger.Warn("journal checkpoint failed", slog.String("id", m), slog.Any("err", err))
		}
	}
	return nil
}

// minCheckpoint returns the minimum checkpoint across persistent
// subscriptions, or "" when any of them has not acknowledged yet.
func (b *Bus) minCheckpoint() string {
	min := ""
	for _, sub := range b.subs {
		if !sub.persistent {
			continue
		}
		if sub.checkpoint == "" {
			return ""
		}
		if min == "" || sub.checkpoint < min {
			min = sub.checkpoint
		}
	}
	return min
}

func (b *Bus) handleReplay(subID, fromID, toID string) replayReply {
	sub, ok := b.subs[subID]
	if !ok {
		return replayReply{err: ErrSubscriptionNotFound}
	}
	through := b.log.evictedThrough

	if fromID == "" {
		// Resume from the checkpoint. A checkpoint at or past the
		// evicted boundary has lost nothing; below it, unacknowledged
		// entries are gone.
		cp := sub.checkpoint
		if through != "" && cp < through {
			return replayReply{err: &ReplayGapError{
				SubscriptionID: subID,
				FromID:         cp,
				OldestRetained: b.log.oldest(),
			}}
		}
		entries := b.log.slice(cp, toID)
		if cp != "" && len(entries) > 0 && entries[0].ID == cp {
			// The checkpointed entry itself is already acknowledged.
			entries = entries[1:]
		}
		return replayReply{rep: &Replay{entries: entries}}
	}

	if through != "" && fromID <= through {
		return replayReply{err: &ReplayGapError{
			SubscriptionID: subID,
			FromID:         fromID,
			OldestRetained: b.log.oldest(),
		}}
	}
	return replayReply{rep: &Replay{entries: b.log.slice(fromID, toID)}}
}

func (b *Bus) handleSnapshot(name string) snapshotReply {
	records := make([]journal.SubscriptionRecord, 0, len(b.subs))
	for _, sub := range b.subs {
		records = append(records, sub.record())
	}

	snap, err := journal.NewSnapshot(name, b.log.window(), records, b.log.evictedThrough)
	if err != nil {
		return snapshotReply{err: err}
	}
	b.snapshots[snap.ID] = snap
	return snapshotReply{id: snap.ID}
}

func (b *Bus) handleSnapshotGet(id string) snapshotGetReply {
	snap, ok := b.snapshots[id]
	if !ok {
		return snapshotGetReply{err: ErrSnapshotNotFound}
	}
	return snapshotGetReply{snap: snap}
}

func (b *Bus) handleRestore(id string) error {
	snap, ok := b.snapshots[id]
	if !ok {
		return ErrSnapshotNotFound
	}

	// Tear down the current table; restore replaces it wholesale.
	for _, sub := range b.subs {
		close(sub.queue)
	}
	b.subs = make(map[string]*subscription)
	b.router = pattern.NewRouter()
	b.log.replace(snap.Signals, snap.EvictedThrough)
	b.logLen.Store(int64(b.log.len()))

	for _, rec := range snap.Subscriptions {
		p := pattern.Pattern(rec.Pattern)
		if err := b.router.Insert(p, rec.ID, rec.Priority); err != nil {
			return fmt.Errorf("restore subscription %s: %w", rec.ID, err)
		}
		sub := &subscription{
			id:         rec.ID,
			pat:        p,
			target:     dispatch.Config{Adapter: rec.Adapter, Options: rec.Options},
			priority:   rec.Priority,
			persistent: rec.Persistent,
			checkpoint: rec.Checkpoint,
			queue:      make(chan delivery, b.cfg.queueSize),
		}
		b.subs[rec.ID] = sub
		b.workers.Add(1)
		go b.deliverLoop(sub)
	}
	b.subCount.Store(int64(len(b.subs)))
	return nil
}

func (b *Bus) handleRoute(sigType string) []SubscriptionInfo {
	matches := b.router.Lookup(sigType)
	infos := make([]SubscriptionInfo, 0, len(matches))
	for _, m := range matches {
		if sub, ok := b.subs[m.SubscriptionID]; ok {
			infos = append(infos, sub.info())
		}
	}
	return infos
}

func (b *Bus) handleSubscriptions() []SubscriptionInfo {
	infos := make([]SubscriptionInfo, 0, len(b.subs))
	for _, sub := range b.subs {
		infos = append(infos, sub.info())
	}
	return infos
}

// deliverLoop is a subscription's delivery worker. It consumes the
// queue in FIFO order, which preserves log order for this subscription
// no matter how other subscriptions fare.
func (b *Bus) deliverLoop(sub *subscription) {
	defer b.workers.Done()
	for d := range sub.queue {
		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.deliveryTimeout)
		err := b.registry.Deliver(ctx, d.sig, d.target.Adapter, d.target.Options)
		cancel()
		if err != nil {
			b.failed.Add(1)
			b.report(DeliveryFailure{
				SubscriptionID: sub.id,
				SignalID:       d.sig.ID,
				Err:            err,
				Time:           time.Now(),
			})
			continue
		}
		b.delivered.Add(1)
	}
}

// report puts a failure on the observation channel, dropping it if
// nobody is keeping up.
func (b *Bus) report(f DeliveryFailure) {
	select {
	case b.errs <- f:
	default:
	}
}
